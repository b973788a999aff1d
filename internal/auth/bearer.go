package auth

import (
	"strings"

	"github.com/hitoshi/bluestock/internal/model"
)

const bearerPrefix = "Bearer "

// ExtractBearer はAuthorizationヘッダーからBearerトークンを取り出す。
// ヘッダーが空の場合とBearer形式でない場合で異なるメッセージのUnauthorizedを返す。
func ExtractBearer(header string) (string, error) {
	if header == "" {
		return "", model.NewUnauthorizedError("Missing Authorization header")
	}
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", model.NewUnauthorizedError("Invalid Authorization header")
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", model.NewUnauthorizedError("Invalid Authorization header")
	}
	return token, nil
}
