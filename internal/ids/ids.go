package ids

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultCodeLength matches the six character codes handed out to players.
const DefaultCodeLength = 6

// Source produces lobby codes and participant ids.
type Source interface {
	NewCode() (string, error)
	NewParticipantID() string
}

type Random struct {
	CodeLength int
}

func NewRandom(codeLength int) Random {
	if codeLength <= 0 {
		codeLength = DefaultCodeLength
	}
	return Random{CodeLength: codeLength}
}

func (r Random) NewCode() (string, error) {
	n := r.CodeLength
	if n <= 0 {
		n = DefaultCodeLength
	}

	code := make([]byte, n)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}

func (Random) NewParticipantID() string {
	return uuid.NewString()
}

// NormalizeCode is the canonical form used for lookups; codes compare case-insensitively.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Sequence hands out predictable ids. Codes can be scripted to force collisions.
type Sequence struct {
	mu     sync.Mutex
	Codes  []string
	next   int
	nextID int
}

func (s *Sequence) NewCode() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next < len(s.Codes) {
		c := s.Codes[s.next]
		s.next++
		return c, nil
	}
	s.next++
	return fmt.Sprintf("C%05d", s.next), nil
}

func (s *Sequence) NewParticipantID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return fmt.Sprintf("p%d", s.nextID)
}
