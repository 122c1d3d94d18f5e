// Package licensekey реализует генерацию лицензионных ключей формата
// XXXX-XXXX-XXXX над алфавитом [A-Z0-9]. Ключи используются как общий
// секрет при активации, поэтому источник случайности — crypto/rand.
package licensekey

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"strings"
)

const (
	alphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	segments   = 3
	segmentLen = 4

	// collisionWarnEvery задаёт порог, после которого генератор начинает
	// предупреждать о повторных коллизиях: по мере заполнения пространства
	// ключей цикл подбора может стать патологически длинным.
	collisionWarnEvery = 5
)

var keyPattern = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// ExistsFunc проверяет, существует ли уже лицензия с таким ключом.
type ExistsFunc func(ctx context.Context, key string) (bool, error)

// Generator выпускает уникальные лицензионные ключи, проверяя каждый
// кандидат на коллизию через хранилище.
type Generator struct {
	exists ExistsFunc
	log    *slog.Logger
}

// NewGenerator создает новый Generator с функцией проверки существования ключа.
func NewGenerator(exists ExistsFunc, log *slog.Logger) *Generator {
	return &Generator{
		exists: exists,
		log:    log,
	}
}

// Generate возвращает ключ, отсутствующий в хранилище. При коллизии ключ
// отбрасывается и генерируется заново, без ограничения числа попыток.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	const op = "licensekey.Generate"
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%s: %w", op, ctx.Err())
		default:
		}

		key, err := Random()
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		taken, err := g.exists(ctx, key)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		if !taken {
			return key, nil
		}
		if attempt%collisionWarnEvery == 0 {
			g.log.Warn("license key collisions, keyspace may be filling up",
				slog.Int("attempts", attempt))
		}
	}
}

// Random возвращает случайный ключ формата XXXX-XXXX-XXXX без проверки уникальности.
func Random() (string, error) {
	parts := make([]string, 0, segments)
	for range segments {
		var sb strings.Builder
		for range segmentLen {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
			if err != nil {
				return "", err
			}
			sb.WriteByte(alphabet[n.Int64()])
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, "-"), nil
}

// Valid сообщает, соответствует ли строка формату лицензионного ключа.
func Valid(key string) bool {
	return keyPattern.MatchString(key)
}
