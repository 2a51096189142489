package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// MaxInitDataAge bounds how old a signed initData payload may be before it is
// treated as replayed.
const MaxInitDataAge = 24 * time.Hour

// InitDataVerifier checks the HMAC signature Telegram attaches to WebApp
// initData. With an empty bot token (local development) the signature check
// is skipped and the payload is only parsed.
type InitDataVerifier struct {
	secret []byte
	now    func() time.Time
}

func NewInitDataVerifier(botToken string) *InitDataVerifier {
	v := &InitDataVerifier{now: time.Now}
	if strings.TrimSpace(botToken) != "" {
		mac := hmac.New(sha256.New, []byte("WebAppData"))
		mac.Write([]byte(botToken))
		v.secret = mac.Sum(nil)
	}
	return v
}

// Verify validates the signature and freshness of initData and returns the
// embedded Telegram user. The returned user always has a positive ID and a
// non-empty first name.
func (v *InitDataVerifier) Verify(initData string) (TelegramUser, error) {
	initData = strings.TrimSpace(initData)
	if initData == "" {
		return TelegramUser{}, fmt.Errorf("init data is empty: %w", ErrInvalidInput)
	}

	values, err := url.ParseQuery(initData)
	if err != nil {
		return TelegramUser{}, fmt.Errorf("parse init data: %w", ErrInvalidInput)
	}

	if len(v.secret) > 0 {
		if err := v.checkSignature(values); err != nil {
			return TelegramUser{}, err
		}
		if err := v.checkFreshness(values.Get("auth_date")); err != nil {
			return TelegramUser{}, err
		}
	}

	rawUser := values.Get("user")
	if rawUser == "" {
		return TelegramUser{}, fmt.Errorf("init data has no user: %w", ErrInvalidInput)
	}

	var user TelegramUser
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return TelegramUser{}, fmt.Errorf("decode init data user: %w", ErrInvalidInput)
	}
	if user.ID <= 0 {
		return TelegramUser{}, fmt.Errorf("init data user id is missing: %w", ErrInvalidInput)
	}
	if strings.TrimSpace(user.FirstName) == "" {
		return TelegramUser{}, fmt.Errorf("init data first name is missing: %w", ErrInvalidInput)
	}

	return user, nil
}

func (v *InitDataVerifier) checkSignature(values url.Values) error {
	gotHash := values.Get("hash")
	if gotHash == "" {
		return fmt.Errorf("init data hash is missing: %w", ErrUnauthorized)
	}

	pairs := make([]string, 0, len(values))
	for key := range values {
		if key == "hash" {
			continue
		}
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(strings.Join(pairs, "\n")))
	want := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(want), []byte(gotHash)) {
		return fmt.Errorf("init data signature mismatch: %w", ErrUnauthorized)
	}
	return nil
}

func (v *InitDataVerifier) checkFreshness(rawAuthDate string) error {
	authUnix, err := strconv.ParseInt(strings.TrimSpace(rawAuthDate), 10, 64)
	if err != nil || authUnix <= 0 {
		return fmt.Errorf("init data auth_date is invalid: %w", ErrUnauthorized)
	}
	if v.now().UTC().Sub(time.Unix(authUnix, 0)) > MaxInitDataAge {
		return fmt.Errorf("init data is stale: %w", ErrUnauthorized)
	}
	return nil
}
