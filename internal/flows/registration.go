package flows

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxUsernameLength is the longest username the service accepts.
	MaxUsernameLength = 15
	// CaptchaImageCount is the number of images in a captcha challenge.
	CaptchaImageCount = 9
	// BirthdayLayout is the accepted birthday format.
	BirthdayLayout = "2006-01-02"

	maxCaptchaImageSize = 4 << 20
)

var (
	ErrInvalidPhoneNumber     = errors.New("phone number must have 10 digits plus an optional country code")
	ErrInvalidCaptchaSolution = errors.New("captcha solution must be 9 characters of '0' or '1'")
	ErrInvalidBirthday        = errors.New("birthday must be formatted YYYY-MM-DD")
	ErrInvalidCaptchaArchive  = errors.New("captcha archive is malformed")
)

// TruncateUsername returns the first MaxUsernameLength characters of username.
func TruncateUsername(username string) string {
	if utf8.RuneCountInString(username) <= MaxUsernameLength {
		return username
	}
	runes := []rune(username)
	return string(runes[:MaxUsernameLength])
}

// NormalizePhone strips formatting from mobile and splits it into a country
// code and a 10-digit national number. Missing country codes default to
// defaultCountryCode.
func NormalizePhone(mobile, defaultCountryCode string) (countryCode, number string, err error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) && r < utf8.RuneSelf {
			return r
		}
		return -1
	}, mobile)

	switch {
	case len(digits) == 10:
		if defaultCountryCode == "" {
			defaultCountryCode = "1"
		}
		return defaultCountryCode, digits, nil
	case len(digits) > 10 && len(digits) <= 13:
		return digits[:len(digits)-10], digits[len(digits)-10:], nil
	default:
		return "", "", ErrInvalidPhoneNumber
	}
}

// ValidateCaptchaSolution checks a binary captcha solution string.
func ValidateCaptchaSolution(solution string) error {
	if len(solution) != CaptchaImageCount {
		return ErrInvalidCaptchaSolution
	}
	for i := 0; i < len(solution); i++ {
		if solution[i] != '0' && solution[i] != '1' {
			return ErrInvalidCaptchaSolution
		}
	}
	return nil
}

// AgeOn parses birthday and returns the age in whole years on day now.
func AgeOn(birthday string, now time.Time) (int, error) {
	born, err := time.Parse(BirthdayLayout, birthday)
	if err != nil {
		return 0, ErrInvalidBirthday
	}
	if born.After(now) {
		return 0, ErrInvalidBirthday
	}
	age := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		age--
	}
	return age, nil
}

// EmailRegistration is the flow-local shape of a register-email response.
type EmailRegistration struct {
	Email               string   `json:"email"`
	PhoneHint           string   `json:"snapchat_phone_number"`
	UsernameSuggestions []string `json:"username_suggestions"`
}

// ParseEmailRegistration decodes a register-email body.
func ParseEmailRegistration(body []byte) (EmailRegistration, error) {
	var out EmailRegistration
	if err := json.Unmarshal(body, &out); err != nil {
		return EmailRegistration{}, ErrMalformedResponse
	}
	return out, nil
}

// ParseOpaque decodes an undocumented JSON object body. Empty bodies decode
// to an empty map.
func ParseOpaque(body []byte) (map[string]any, error) {
	out := map[string]any{}
	if len(bytes.TrimSpace(body)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, ErrMalformedResponse
	}
	return out, nil
}

// CaptchaIDFromDisposition extracts the captcha id from a
// Content-Disposition header: the attachment file name without extension.
func CaptchaIDFromDisposition(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	name := path.Base(params["filename"])
	if name == "." || name == "/" {
		return ""
	}
	return strings.TrimSuffix(name, path.Ext(name))
}

// UnzipCaptcha extracts the captcha images from archive, ordered by the
// number in each file name. An image larger than maxCaptchaImageSize
// invalidates the archive.
func UnzipCaptcha(archive []byte) ([][]byte, error) {
	r, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, ErrInvalidCaptchaArchive
	}

	files := make([]*zip.File, 0, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		files = append(files, f)
	}
	sort.SliceStable(files, func(i, j int) bool { return captchaNameLess(files[i].Name, files[j].Name) })

	images := make([][]byte, 0, len(files))
	for _, f := range files {
		rc, err := f.Open()
		if err != nil {
			return nil, ErrInvalidCaptchaArchive
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxCaptchaImageSize+1))
		rc.Close()
		if err != nil || len(data) > maxCaptchaImageSize {
			return nil, ErrInvalidCaptchaArchive
		}
		images = append(images, data)
	}
	if len(images) != CaptchaImageCount {
		return nil, ErrInvalidCaptchaArchive
	}
	return images, nil
}

// captchaNameLess orders "captcha_2.png" before "captcha_10.png". Names
// without a trailing number, or with different stems, compare as strings.
func captchaNameLess(a, b string) bool {
	stemA, numA, okA := splitTrailingNumber(a)
	stemB, numB, okB := splitTrailingNumber(b)
	if okA && okB && stemA == stemB && numA != numB {
		return numA < numB
	}
	return a < b
}

func splitTrailingNumber(name string) (string, int, bool) {
	base := strings.TrimSuffix(path.Base(name), path.Ext(name))
	i := len(base)
	for i > 0 && base[i-1] >= '0' && base[i-1] <= '9' {
		i--
	}
	if i == len(base) {
		return base, 0, false
	}
	n, err := strconv.Atoi(base[i:])
	if err != nil {
		return base, 0, false
	}
	return base[:i], n, true
}
