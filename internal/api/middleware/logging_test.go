package middleware

import "testing"

// TestMaskDownloadPath проверяет маскирование токена скачивания в логах.
func TestMaskDownloadPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/download/secret-token-value", "/api/v1/download/{token}"},
		{"/api/v1/download/", "/api/v1/download/"},
		{"/api/v1/shares", "/api/v1/shares"},
		{"/health/live", "/health/live"},
	}
	for _, tt := range tests {
		if got := maskDownloadPath(tt.path); got != tt.want {
			t.Errorf("maskDownloadPath(%q) = %q, ожидалось %q", tt.path, got, tt.want)
		}
	}
}
