package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultExpiresIn is how long a signed payload stays acceptable after auth_date.
const DefaultExpiresIn = 24 * time.Hour

const webAppDataKey = "WebAppData"

type pair struct {
	key   string
	value string
}

// splitPairs decodes a query-string payload into pairs, keeping wire order.
// Unlike url.ParseQuery it keeps duplicate keys as separate pairs, which is what
// the host signs.
func splitPairs(payload string) ([]pair, error) {
	var pairs []pair
	for _, part := range strings.Split(payload, "&") {
		if part == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrMalformed, rawKey, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("%w: value of %q: %v", ErrMalformed, key, err)
		}
		pairs = append(pairs, pair{key: key, value: value})
	}
	return pairs, nil
}

// dataCheckString builds the canonical HMAC input: every pair except hash,
// sorted by key, rendered as key=value and joined with newlines.
func dataCheckString(pairs []pair) string {
	lines := make([]pair, 0, len(pairs))
	for _, p := range pairs {
		if p.key == "hash" {
			continue
		}
		lines = append(lines, p)
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].key < lines[j].key })

	var b strings.Builder
	for i, p := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(p.value)
	}
	return b.String()
}

func secretKey(botToken string) []byte {
	h := hmac.New(sha256.New, []byte(webAppDataKey))
	h.Write([]byte(botToken))
	return h.Sum(nil)
}

func signature(botToken, dcs string) []byte {
	h := hmac.New(sha256.New, secretKey(botToken))
	h.Write([]byte(dcs))
	return h.Sum(nil)
}

// Verify checks that payload was signed by the bot identified by botToken and
// that its auth_date is no older than expiresIn relative to now. A non-positive
// expiresIn disables the freshness check.
func Verify(payload, botToken string, expiresIn time.Duration, now time.Time) error {
	if botToken == "" {
		return ErrNotConfigured
	}
	if payload == "" {
		return ErrEmpty
	}

	pairs, err := splitPairs(payload)
	if err != nil {
		return err
	}

	var hash, authDateRaw string
	var hasHash, hasAuthDate bool
	for _, p := range pairs {
		switch p.key {
		case "hash":
			hash, hasHash = p.value, true
		case "auth_date":
			authDateRaw, hasAuthDate = p.value, true
		}
	}
	if !hasHash || hash == "" {
		return ErrMissingHash
	}

	provided, err := hex.DecodeString(hash)
	if err != nil || len(provided) != sha256.Size {
		return ErrSignatureMismatch
	}
	if !hmac.Equal(signature(botToken, dataCheckString(pairs)), provided) {
		return ErrSignatureMismatch
	}

	if !hasAuthDate {
		return fmt.Errorf("%w: auth_date is missing", ErrMalformed)
	}
	authDate, err := strconv.ParseInt(authDateRaw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: auth_date %q is not an integer", ErrMalformed, authDateRaw)
	}
	if expiresIn > 0 && now.Unix()-authDate > int64(expiresIn/time.Second) {
		return ErrExpired
	}
	return nil
}

// Sign returns a wire payload for fields carrying a hash computed with
// botToken. Keys are emitted in sorted order.
func Sign(fields map[string]string, botToken string) string {
	pairs := make([]pair, 0, len(fields))
	for k, v := range fields {
		if k == "hash" {
			continue
		}
		pairs = append(pairs, pair{key: k, value: v})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].key < pairs[j].key })

	vals := make([]string, 0, len(pairs)+1)
	for _, p := range pairs {
		vals = append(vals, url.QueryEscape(p.key)+"="+url.QueryEscape(p.value))
	}
	hash := hex.EncodeToString(signature(botToken, dataCheckString(pairs)))
	vals = append(vals, "hash="+hash)
	return strings.Join(vals, "&")
}
