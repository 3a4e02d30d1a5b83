// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"errors"
	"time"

	"ripple/internal/loader"
	"ripple/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid ID"))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// statusForError maps an application error to its HTTP status. Unknown
// errors are treated as internal.
func statusForError(err error) int {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case "NOT_FOUND":
			return fiber.StatusNotFound
		case "VALIDATION_ERROR":
			return fiber.StatusBadRequest
		case "UNAUTHORIZED":
			return fiber.StatusForbidden
		case "CONFLICT":
			return fiber.StatusConflict
		}
	}
	return fiber.StatusInternalServerError
}

// respondError writes err with the status implied by its error code.
func respondError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, statusForError(err), err)
}

// postView is the post representation returned by the API. TextSnippet is
// set on list responses, Text on detail responses. VoteStatus is the
// viewer's own vote (nil when logged out or not voted).
type postView struct {
	ID          uint         `json:"id"`
	Title       string       `json:"title"`
	Text        string       `json:"text,omitempty"`
	TextSnippet string       `json:"text_snippet,omitempty"`
	Points      int          `json:"points"`
	CreatorID   uint         `json:"creator_id"`
	Creator     *models.User `json:"creator,omitempty"`
	VoteStatus  *int         `json:"vote_status,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// renderPostViews annotates posts with their creators and, when a viewer is
// logged in, the viewer's vote. All lookups go through the request's batch
// loaders so a page of posts costs one user query and one vote query.
func (s *Server) renderPostViews(c *fiber.Ctx, posts []*models.Post, snippet bool) ([]postView, error) {
	viewerID, loggedIn := s.optionalUserID(c)
	loaders := loader.For(c.UserContext())

	// Enqueue every key before resolving any thunk so the loader can batch.
	userThunks := make([]func() (*models.User, error), len(posts))
	voteThunks := make([]func() (*models.Vote, error), len(posts))
	for i, p := range posts {
		userThunks[i] = loaders.Users.LoadThunk(p.CreatorID)
		if loggedIn {
			voteThunks[i] = loaders.Votes.LoadThunk(models.VoteKey{UserID: viewerID, PostID: p.ID})
		}
	}

	views := make([]postView, len(posts))
	for i, p := range posts {
		view := postView{
			ID:        p.ID,
			Title:     p.Title,
			Points:    p.Points,
			CreatorID: p.CreatorID,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		}
		if snippet {
			view.TextSnippet = p.Snippet()
		} else {
			view.Text = p.Text
		}

		creator, err := userThunks[i]()
		if err != nil {
			return nil, err
		}
		if creator != nil {
			sanitized := creator.Sanitized(viewerID)
			view.Creator = &sanitized
		}

		if loggedIn {
			vote, err := voteThunks[i]()
			if err != nil {
				return nil, err
			}
			if vote != nil {
				value := vote.Value
				view.VoteStatus = &value
			}
		}

		views[i] = view
	}

	return views, nil
}

// renderPostView renders a single post with full text.
func (s *Server) renderPostView(c *fiber.Ctx, post *models.Post) (*postView, error) {
	views, err := s.renderPostViews(c, []*models.Post{post}, false)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}
