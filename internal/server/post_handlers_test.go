package server

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePostRequiresAuth(t *testing.T) {
	_, app, _ := newTestServer(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/posts/", "", map[string]string{
		"title": "nope",
		"text":  "nope",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestVoteRequiresAuth(t *testing.T) {
	_, app, _ := newTestServer(t)
	token, _ := signupUser(t, app, "author")
	postID := createPost(t, app, token, "target")

	resp, _ := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/vote", postID), "", map[string]int{
		"value": 1,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateAndGetPost(t *testing.T) {
	_, app, _ := newTestServer(t)
	token, userID := signupUser(t, app, "author")

	longText := strings.Repeat("x", 80)
	resp, body := doJSON(t, app, http.MethodPost, "/api/posts/", token, map[string]string{
		"title": "hello world",
		"text":  longText,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %v", body)
	assert.Equal(t, longText, body["text"], "detail views carry full text")
	assert.EqualValues(t, 0, body["points"])
	assert.EqualValues(t, userID, body["creator_id"])

	postID := uint(body["id"].(float64))
	resp, body = doJSON(t, app, http.MethodGet, fmt.Sprintf("/api/posts/%d", postID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello world", body["title"])
	assert.Equal(t, longText, body["text"])

	creator := body["creator"].(map[string]any)
	assert.Equal(t, "author", creator["username"])
	_, hasEmail := creator["email"]
	assert.False(t, hasEmail, "anonymous viewers never see creator emails")
}

func TestGetFeedSnippetsAndPaging(t *testing.T) {
	_, app, _ := newTestServer(t)
	token, _ := signupUser(t, app, "author")

	longText := strings.Repeat("y", 120)
	for i := 0; i < 5; i++ {
		resp, body := doJSON(t, app, http.MethodPost, "/api/posts/", token, map[string]string{
			"title": fmt.Sprintf("post-%d", i),
			"text":  longText,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %v", body)
	}

	resp, body := doJSON(t, app, http.MethodGet, "/api/posts/?limit=3", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	posts := body["posts"].([]any)
	require.Len(t, posts, 3)
	assert.Equal(t, true, body["has_more"])
	cursor, _ := body["next_cursor"].(string)
	require.NotEmpty(t, cursor)

	first := posts[0].(map[string]any)
	assert.Equal(t, "post-4", first["title"], "feed is newest first")
	snippet, _ := first["text_snippet"].(string)
	assert.Len(t, snippet, 50)
	_, hasFull := first["text"]
	assert.False(t, hasFull, "feed rows carry snippets, not bodies")

	// Next page picks up where the cursor left off.
	resp, body = doJSON(t, app, http.MethodGet, "/api/posts/?limit=3&cursor="+cursor, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	posts = body["posts"].([]any)
	require.Len(t, posts, 2)
	assert.Equal(t, false, body["has_more"])
	assert.Equal(t, "post-1", posts[0].(map[string]any)["title"])

	// Garbage cursors are a client error.
	resp, _ = doJSON(t, app, http.MethodGet, "/api/posts/?cursor=!!bogus!!", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestVoteFlow(t *testing.T) {
	_, app, _ := newTestServer(t)
	authorToken, _ := signupUser(t, app, "author")
	voterToken, _ := signupUser(t, app, "voter")
	postID := createPost(t, app, authorToken, "votable")
	path := fmt.Sprintf("/api/posts/%d/vote", postID)

	// First vote.
	resp, body := doJSON(t, app, http.MethodPost, path, voterToken, map[string]int{"value": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", body)
	assert.Equal(t, "created", body["outcome"])
	post := body["post"].(map[string]any)
	assert.EqualValues(t, 1, post["points"])
	assert.EqualValues(t, 1, post["vote_status"])

	// Repeating the same vote changes nothing.
	resp, body = doJSON(t, app, http.MethodPost, path, voterToken, map[string]int{"value": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "unchanged", body["outcome"])
	assert.EqualValues(t, 1, body["post"].(map[string]any)["points"])

	// Flipping swings by two.
	resp, body = doJSON(t, app, http.MethodPost, path, voterToken, map[string]int{"value": -1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "flipped", body["outcome"])
	post = body["post"].(map[string]any)
	assert.EqualValues(t, -1, post["points"])
	assert.EqualValues(t, -1, post["vote_status"])

	// A second voter's weird value is normalized to an upvote.
	resp, body = doJSON(t, app, http.MethodPost, path, authorToken, map[string]int{"value": 5})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "created", body["outcome"])
	assert.EqualValues(t, 0, body["post"].(map[string]any)["points"])
}

func TestVoteMissingPost(t *testing.T) {
	_, app, _ := newTestServer(t)
	token, _ := signupUser(t, app, "voter")

	resp, _ := doJSON(t, app, http.MethodPost, "/api/posts/99999/vote", token, map[string]int{"value": 1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFeedShowsViewerVoteStatus(t *testing.T) {
	_, app, _ := newTestServer(t)
	authorToken, _ := signupUser(t, app, "author")
	voterToken, _ := signupUser(t, app, "voter")

	votedID := createPost(t, app, authorToken, "voted")
	createPost(t, app, authorToken, "unvoted")

	resp, _ := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/posts/%d/vote", votedID), voterToken, map[string]int{"value": -1})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodGet, "/api/posts/", voterToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, raw := range body["posts"].([]any) {
		p := raw.(map[string]any)
		switch p["title"] {
		case "voted":
			assert.EqualValues(t, -1, p["vote_status"])
		case "unvoted":
			_, present := p["vote_status"]
			assert.False(t, present, "no vote means no status, not zero")
		}
	}

	// Logged-out viewers see no vote status at all.
	resp, body = doJSON(t, app, http.MethodGet, "/api/posts/", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, raw := range body["posts"].([]any) {
		_, present := raw.(map[string]any)["vote_status"]
		assert.False(t, present)
	}
}

func TestUpdatePostOwnership(t *testing.T) {
	_, app, _ := newTestServer(t)
	ownerToken, _ := signupUser(t, app, "owner")
	otherToken, _ := signupUser(t, app, "intruder")
	postID := createPost(t, app, ownerToken, "mine")
	path := fmt.Sprintf("/api/posts/%d", postID)

	resp, _ := doJSON(t, app, http.MethodPut, path, otherToken, map[string]string{"title": "stolen"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPut, path, ownerToken, map[string]string{"title": "renamed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "renamed", body["title"])
}

func TestDeletePost(t *testing.T) {
	_, app, _ := newTestServer(t)
	ownerToken, _ := signupUser(t, app, "owner")
	otherToken, _ := signupUser(t, app, "intruder")
	postID := createPost(t, app, ownerToken, "ephemeral")
	path := fmt.Sprintf("/api/posts/%d", postID)

	resp, _ := doJSON(t, app, http.MethodDelete, path, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, path, ownerToken, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
