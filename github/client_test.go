package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contribstats/logger"
)

func init() {
	// Initialize logger for tests
	_ = logger.Initialize("debug")
}

func TestNewClient(t *testing.T) {
	client := NewClient("test-token")

	assert.NotNil(t, client)
	assert.Equal(t, "test-token", client.token)
	assert.Equal(t, defaultTimeout, client.timeout)
	assert.Equal(t, defaultBaseURL, client.baseURL.String())
}

func TestFetchUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "token test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github.v3+json", r.Header.Get("Accept"))
		assert.Equal(t, "/user", r.URL.Path)

		w.Write([]byte(`{"login": "xavier", "repos_url": "https://api.github.com/users/xavier/repos"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))

	user, err := client.FetchUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "xavier", user.Login)
	assert.Equal(t, "https://api.github.com/users/xavier/repos", user.ReposURL)
}

func TestFetchUserDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"repos_url": "https://api.github.com/users/xavier/repos"}`))
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))

	_, err := client.FetchUser(context.Background())
	var decodeErr *DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestFetchAPILimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rate_limit", r.URL.Path)
		w.Write([]byte(`{"rate": {"limit": 5000, "remaining": 4321}}`))
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))

	limit, err := client.FetchAPILimit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5000, limit.Rate.Limit)
	assert.Equal(t, 4321, limit.Rate.Remaining)
}

func TestRateLimitExceeded(t *testing.T) {
	testCases := []struct {
		name            string
		statusCode      int
		remainingHeader string
		setHeader       bool
		expectedErr     error
	}{
		{
			name:            "403 with exhausted budget",
			statusCode:      http.StatusForbidden,
			remainingHeader: "0",
			setHeader:       true,
			expectedErr:     ErrRateLimitExceeded,
		},
		{
			name:       "403 without rate header is not a limit error",
			statusCode: http.StatusForbidden,
		},
		{
			name:            "403 with budget left is not a limit error",
			statusCode:      http.StatusForbidden,
			remainingHeader: "42",
			setHeader:       true,
		},
		{
			name:            "200 with zero remaining succeeds",
			statusCode:      http.StatusOK,
			remainingHeader: "0",
			setHeader:       true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tc.setHeader {
					w.Header().Set(rateLimitRemainingHeader, tc.remainingHeader)
				}
				w.WriteHeader(tc.statusCode)
				if tc.statusCode == http.StatusOK {
					w.Write([]byte(`{"login": "xavier", "repos_url": "https://api.github.com/users/xavier/repos"}`))
				}
			}))
			defer server.Close()

			client := NewClient("test-token", WithBaseURL(server.URL))

			_, err := client.FetchUser(context.Background())
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else if tc.statusCode != http.StatusOK {
				assert.Error(t, err)
				assert.NotErrorIs(t, err, ErrRateLimitExceeded)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL), WithTimeout(20*time.Millisecond))

	_, err := client.FetchUser(context.Background())
	assert.ErrorIs(t, err, ErrRequestTimeout)
}

func TestMergeParams(t *testing.T) {
	merged, err := mergeParams("https://api.github.com/repos/acme/widgets/commits?since=2024-01-01T00%3A00%3A00Z", map[string][]string{
		"author": {"xavier"},
	})
	require.NoError(t, err)
	assert.Contains(t, merged, "author=xavier")
	assert.Contains(t, merged, "since=2024-01-01")
}
