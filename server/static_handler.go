package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"ArtistHub/logger"
	"ArtistHub/storage"
)

// StaticHandler 处理 MinIO 静态文件请求
type StaticHandler struct {
	artwork ArtworkReader
}

// NewStaticHandler 创建 StaticHandler 实例
func NewStaticHandler(artwork ArtworkReader) *StaticHandler {
	return &StaticHandler{artwork: artwork}
}

// ServeHTTP 实现 http.Handler 接口
func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, storage.ServePrefix)
	if key == "" || strings.Contains(key, "..") || path.Clean("/"+key) != "/"+key {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	object, info, err := h.artwork.Open(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrObjectNotFound) {
			logger.Error("Error opening object from MinIO", logger.String("key", key), logger.ErrorField(err))
		}
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	defer object.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = detectContentType(key)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	if !info.LastModified.IsZero() {
		w.Header().Set("Last-Modified", info.LastModified.UTC().Format(http.TimeFormat))
	}

	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, object); err != nil {
		logger.Error("Error serving file from MinIO", logger.String("key", key), logger.ErrorField(err))
	}
}

// detectContentType 根据扩展名检测内容类型
func detectContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}
