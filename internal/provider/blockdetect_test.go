package provider

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectFallback_EdgeBlock403(t *testing.T) {
	resp := &http.Response{
		StatusCode: 403,
		Header:     http.Header{"Cf-Ray": {"9f00aa"}},
	}
	blocked, kind := DetectFallback(resp, nil)
	assert.True(t, blocked)
	assert.Equal(t, FallbackEdgeBlock, kind)
}

func TestDetectFallback_PunishPage(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Header: http.Header{}}
	body := []byte(`<html><body>Please slide to verify that you are not a robot</body></html>`)
	blocked, kind := DetectFallback(resp, body)
	assert.True(t, blocked)
	assert.Equal(t, FallbackPunish, kind)
}

func TestDetectFallback_Captcha(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Header: http.Header{}}
	body := []byte(`<html><body>We detected unusual traffic from your network</body></html>`)
	blocked, kind := DetectFallback(resp, body)
	assert.True(t, blocked)
	assert.Equal(t, FallbackCaptcha, kind)
}

func TestDetectFallback_LoginWall(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Header: http.Header{}}
	body := []byte(`<html><body>Please sign in to continue shopping</body></html>`)
	blocked, kind := DetectFallback(resp, body)
	assert.True(t, blocked)
	assert.Equal(t, FallbackLoginWall, kind)
}

func TestDetectFallback_JSShell(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Header: http.Header{}}
	body := []byte(`<html><noscript>This site requires JavaScript</noscript></html>`)
	blocked, kind := DetectFallback(resp, body)
	assert.True(t, blocked)
	assert.Equal(t, FallbackJSShell, kind)
}

func TestDetectFallback_CleanPage(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Header: http.Header{}}
	body := []byte(`<html><body><div class="search-item-card">Wool socks bulk, MOQ 100 pairs</div></body></html>`)
	blocked, kind := DetectFallback(resp, body)
	assert.False(t, blocked)
	assert.Equal(t, FallbackNone, kind)
}

func TestDetectFallback_NilResponse(t *testing.T) {
	blocked, kind := DetectFallback(nil, []byte("captcha"))
	assert.False(t, blocked)
	assert.Equal(t, FallbackNone, kind)
}
