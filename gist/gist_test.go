// Copyright © 2024 The runcoliru authors

package gist

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/luthersystems/runcoliru/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testID = "0123456789abcdef0123456789abcdef"

func TestParseRef(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{testID, testID, true},
		{"  " + testID + "\n", testID, true},
		{"https://gist.github.com/octocat/" + testID, testID, true},
		{"gist.github.com/octocat/" + testID, testID, true},
		{"https://gist.github.com/" + testID, testID, true},
		{"https://gist.github.com/octocat/" + testID + "#file-main-cpp", testID, true},
		{"https://github.com/octocat/" + testID, "", false},
		{"https://gist.github.com/a/b/" + testID, "", false},
		{"https://gist.github.com/octocat/", "", false},
		{"not a gist", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := ParseRef(tt.in)
		if !tt.ok {
			assert.ErrorIs(t, err, ErrInvalidRef, "%q", tt.in)
			continue
		}
		if assert.NoError(t, err, "%q", tt.in) {
			assert.Equal(t, tt.want, got)
		}
	}
}

func serve(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(WithAPIURL(srv.URL), WithBackOff(func() backoff.BackOff {
		return backoff.NewConstantBackOff(time.Millisecond)
	}))
}

func TestLoad(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/gists/"+testID, r.URL.Path)
		_, _ = io.WriteString(w, `{"files": {
			"util.h": {"filename": "util.h", "content": "#pragma once"},
			"main.cpp": {"filename": "main.cpp", "content": "int main() {}"}
		}}`)
	})
	files, err := c.Load(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, []source.File{
		{Name: "main.cpp", Content: "int main() {}"},
		{Name: "util.h", Content: "#pragma once"},
	}, files)
}

func TestLoadTruncated(t *testing.T) {
	var srvURL string
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/raw/big.cpp":
			_, _ = io.WriteString(w, "the whole file")
		default:
			_, _ = io.WriteString(w, `{"files": {"big.cpp": {"content": "the wh", "truncated": true, "raw_url": "`+srvURL+`/raw/big.cpp"}}}`)
		}
	})
	srvURL = c.APIURL
	files, err := c.Load(context.Background(), testID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "the whole file", files[0].Content)
}

func TestLoadToken(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"files": {"a.c": {"content": "x"}}}`)
	})
	c.Token = "s3cret"
	_, err := c.Load(context.Background(), testID)
	require.NoError(t, err)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"not found", http.StatusNotFound, `{"message": "Not Found"}`, ErrNotFound},
		{"empty", http.StatusOK, `{"files": {}}`, ErrEmpty},
		{"no files", http.StatusOK, `{"id": "x"}`, ErrInvalidResponse},
		{"files not object", http.StatusOK, `{"files": []}`, ErrInvalidResponse},
		{"not json", http.StatusOK, `<html>`, ErrInvalidResponse},
		{"null file", http.StatusOK, `{"files": {"a.cpp": null}}`, ErrInvalidResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := serve(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := c.Load(context.Background(), testID)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadStatusError(t *testing.T) {
	var calls int32
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	})
	c.MaxTries = 3
	_, err := c.Load(context.Background(), testID)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.Equal(t, "HTTP error! status: 403", se.Error())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestLoadRetriesServerErrors(t *testing.T) {
	var calls int32
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"files": {"a.cpp": {"content": "x"}}}`)
	})
	c.MaxTries = 2
	files, err := c.Load(context.Background(), testID)
	require.NoError(t, err)
	assert.Len(t, files, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}
