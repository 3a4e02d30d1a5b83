// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"ripple/internal/models"
	"ripple/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /api/posts?limit=&cursor=
func (s *Server) GetFeed(c *fiber.Ctx) error {
	page, err := s.postService.Feed(c.Context(), service.FeedInput{
		Limit:  c.QueryInt("limit", 10),
		Cursor: c.Query("cursor"),
	})
	if err != nil {
		return respondError(c, err)
	}

	views, err := s.renderPostViews(c, page.Posts, true)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"posts":       views,
		"has_more":    page.HasMore,
		"next_cursor": page.NextCursor(),
	})
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPost(c.Context(), id)
	if err != nil {
		return respondError(c, err)
	}

	view, err := s.renderPostView(c, post)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(view)
}

// CreatePost handles POST /api/posts
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(c.Context(), service.CreatePostInput{
		CreatorID: userID,
		Title:     req.Title,
		Text:      req.Text,
	})
	if err != nil {
		return respondError(c, err)
	}

	view, err := s.renderPostView(c, post)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(view)
}

// UpdatePost handles PUT /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Title string `json:"title"`
		Text  string `json:"text"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.UpdatePost(c.Context(), service.UpdatePostInput{
		UserID: userID,
		PostID: postID,
		Title:  req.Title,
		Text:   req.Text,
	})
	if err != nil {
		return respondError(c, err)
	}

	view, err := s.renderPostView(c, post)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(view)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.DeletePost(c.Context(), userID, postID); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// VotePost handles POST /api/posts/:id/vote
func (s *Server) VotePost(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Value int `json:"value"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	result, err := s.voteService.CastVote(c.Context(), userID, postID, req.Value)
	if err != nil {
		return respondError(c, err)
	}

	view, err := s.renderPostView(c, result.Post)
	if err != nil {
		return respondError(c, err)
	}
	// The loader may have cached a pre-vote row for this key; report the
	// value the transaction just committed.
	value := result.Value
	view.VoteStatus = &value

	return c.JSON(fiber.Map{
		"post":    view,
		"outcome": result.Outcome,
	})
}
