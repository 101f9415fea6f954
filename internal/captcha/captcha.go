// Package captcha generates SVG image captchas for the registration and
// login forms. Solutions are stored server-side with a short TTL and are
// consumed on first verification.
package captcha

import (
	"encoding/base64"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// charset omits characters that are easy to confuse (I, O, 0, 1, L).
const charset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	codeLength = 4
	ttl        = 5 * time.Minute
	width      = 160
	height     = 60
)

// Service issues captchas and verifies solutions.
type Service struct {
	store *gocache.Cache
}

// Challenge is what the client receives: an opaque id and an SVG rendered
// as a data URL.
type Challenge struct {
	ID    string `json:"captchaId"`
	Image string `json:"captchaImage"`
}

func New() *Service {
	return &Service{store: gocache.New(ttl, 10*time.Minute)}
}

// Create generates a new challenge and stores its solution.
func (s *Service) Create() Challenge {
	code := randomCode()
	id := uuid.NewString()
	s.store.Set(id, code, ttl)

	svg := renderSVG(code)
	return Challenge{
		ID:    id,
		Image: "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg)),
	}
}

// Verify checks a solution. The challenge is consumed regardless of the
// outcome so each id can only be tried once.
func (s *Service) Verify(id, answer string) bool {
	v, ok := s.store.Get(id)
	if !ok {
		return false
	}
	s.store.Delete(id)
	code, ok := v.(string)
	if !ok {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(answer), code)
}

func randomCode() string {
	b := make([]byte, codeLength)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}

// renderSVG draws the code with per-glyph rotation and a few interference
// lines. It is not meant to defeat OCR, just casual scripting.
func renderSVG(code string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, width, height, width, height)
	b.WriteString(`<rect width="100%" height="100%" fill="#f5f5f5"/>`)

	for i := 0; i < 3; i++ {
		fmt.Fprintf(&b, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#%06x" stroke-width="1.5"/>`,
			rand.Intn(width), rand.Intn(height), rand.Intn(width), rand.Intn(height), rand.Intn(0x999999))
	}

	step := width / (codeLength + 1)
	for i, ch := range code {
		x := step * (i + 1)
		y := height/2 + rand.Intn(14) - 7
		angle := rand.Intn(40) - 20
		fmt.Fprintf(&b, `<text x="%d" y="%d" font-size="32" font-family="monospace" fill="#%06x" transform="rotate(%d %d %d)">%c</text>`,
			x, y, rand.Intn(0x666666), angle, x, y, ch)
	}

	b.WriteString(`</svg>`)
	return b.String()
}
