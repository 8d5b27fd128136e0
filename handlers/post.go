package handlers

import (
	"context"
	"net/http"

	"inkpost/services"

	"github.com/gin-gonic/gin"
)

type PostRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Image       string `json:"image"`
}

func (r PostRequest) input() services.PostInput {
	return services.PostInput{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Image:       r.Image,
	}
}

type DeletePostRequest struct {
	ID string `json:"id"`
}

type LikeRequest struct {
	PostID string `json:"postId" binding:"required"`
}

type DeleteImageRequest struct {
	ImageName string `json:"imagename"`
}

func (h *Handler) ListPosts(c *gin.Context) {
	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	posts, err := h.posts.List(ctx)
	if err != nil {
		fail(c, "ListPosts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// ReadPost serves both GET /readpost/:id and GET /editpost/:id.
func (h *Handler) ReadPost(c *gin.Context) {
	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	post, err := h.posts.Read(ctx, c.Param("id"))
	if err != nil {
		fail(c, "ReadPost", err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *Handler) CreatePost(c *gin.Context) {
	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	who, err := caller(c)
	if err != nil {
		fail(c, "CreatePost", err)
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	post, err := h.posts.Create(ctx, who, req.input())
	if err != nil {
		fail(c, "CreatePost", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "post created", "post": post})
}

func (h *Handler) EditPost(c *gin.Context) {
	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	who, err := caller(c)
	if err != nil {
		fail(c, "EditPost", err)
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	post, err := h.posts.Edit(ctx, who, c.Param("id"), req.input())
	if err != nil {
		fail(c, "EditPost", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "post updated", "post": post})
}

// DeletePost takes the id from the path or from {"id"} in the body.
func (h *Handler) DeletePost(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		var req DeletePostRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.ID == "" {
			badRequest(c, "post id is required")
			return
		}
		id = req.ID
	}
	who, err := caller(c)
	if err != nil {
		fail(c, "DeletePost", err)
		return
	}

	ctx, cancel := withTimeout(c, uploadTimeout)
	defer cancel()

	res, err := h.posts.Delete(ctx, who, id)
	if err != nil {
		fail(c, "DeletePost", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "post deleted",
		"postId":       res.PostID,
		"imageDeleted": res.ImageDeleted,
		"imageError":   res.ImageError,
	})
}

// ListMyPosts answers any failure with 404.
func (h *Handler) ListMyPosts(c *gin.Context) {
	who, err := caller(c)
	if err != nil {
		fail(c, "ListMyPosts", err)
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	posts, err := h.posts.ListByOwner(ctx, who)
	if err != nil {
		fail(c, "ListMyPosts", err, remap{http.StatusInternalServerError, http.StatusNotFound})
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (h *Handler) ListLikedPosts(c *gin.Context) {
	who, err := caller(c)
	if err != nil {
		fail(c, "ListLikedPosts", err)
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	posts, err := h.posts.ListLikedBy(ctx, who)
	if err != nil {
		fail(c, "ListLikedPosts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (h *Handler) Like(c *gin.Context) {
	h.toggleLike(c, "Like", h.posts.Like)
}

func (h *Handler) Dislike(c *gin.Context) {
	h.toggleLike(c, "Dislike", h.posts.Dislike)
}

func (h *Handler) toggleLike(c *gin.Context, op string, apply func(ctx context.Context, who services.Caller, id string) (*services.LikeState, error)) {
	var req LikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	who, err := caller(c)
	if err != nil {
		fail(c, op, err)
		return
	}

	ctx, cancel := withTimeout(c, requestTimeout)
	defer cancel()

	state, err := apply(ctx, who, req.PostID)
	if err != nil {
		fail(c, op, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// UploadPostImage expects the image in multipart field "post".
func (h *Handler) UploadPostImage(c *gin.Context) {
	header, err := c.FormFile("post")
	if err != nil {
		badRequest(c, errMissingFile.Error())
		return
	}
	file, err := header.Open()
	if err != nil {
		badRequest(c, "could not read uploaded file")
		return
	}
	defer file.Close()

	ctx, cancel := withTimeout(c, uploadTimeout)
	defer cancel()

	url, err := h.posts.UploadImage(ctx, file)
	if err != nil {
		fail(c, "UploadPostImage", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *Handler) DeletePostImage(c *gin.Context) {
	var req DeleteImageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ImageName == "" {
		badRequest(c, "Image URL is required")
		return
	}

	ctx, cancel := withTimeout(c, uploadTimeout)
	defer cancel()

	if err := h.posts.DeleteImage(ctx, req.ImageName); err != nil {
		fail(c, "DeletePostImage", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image deleted successfully"})
}
