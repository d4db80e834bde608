package utils

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type ErrorResponse struct {
	FailedField string `json:"failed_field"`
	Tag         string `json:"tag"`
	Value       string `json:"value"`
}

func GenerateRandomBytes(size uint32) []byte {
	token := make([]byte, size)
	if _, err := rand.Read(token); err != nil {
		log.Panic().Err(err).Msg("Failed to read random bytes")
	}
	return token
}

// GenerateToken returns size random bytes hex encoded.
func GenerateToken(size uint32) string {
	return hex.EncodeToString(GenerateRandomBytes(size))
}

func DecodeBase64(message []byte) ([]byte, error) {
	base64Text := make([]byte, base64.StdEncoding.DecodedLen(len(message)))

	n, err := base64.StdEncoding.Decode(base64Text, message)
	if err != nil {
		return nil, err
	}
	return base64Text[:n], nil
}

func EncodeBase64(message []byte) []byte {
	base64Text := make([]byte, base64.StdEncoding.EncodedLen(len(message)))
	base64.StdEncoding.Encode(base64Text, message)
	return base64Text
}

// ParseFlags loads the optional .env file and reports whether the service
// runs in production mode.
func ParseFlags() bool {
	devMode := flag.Bool("dev", false, "Run in dev mode")
	envFile := flag.String("env", "", ".env file path")

	flag.Parse()

	if len(*envFile) > 0 {
		if err := godotenv.Load(*envFile); err != nil {
			log.Panic().Err(err).Msg("Could not load .env file")
		}
	} else if err := godotenv.Load(".prod.env"); err != nil {
		log.Debug().Msg("No .prod.env file, using process environment")
	}

	return !*devMode
}

// NumericId decodes from a JSON number or a numeric string. Empty and null
// decode to zero.
type NumericId int64

func (n *NumericId) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*n = 0
		return nil
	}

	id, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return err
	}
	*n = NumericId(id)
	return nil
}

func IsInList(item string, list *[]string) int {
	for i, val := range *list {
		if val == item {
			return i
		}
	}
	return -1
}

type JwtConfig struct {
	User       string
	ExpireIn   time.Duration
	Scope      string
	Subject    string
	Data       map[string]string
	PrivateKey *rsa.PrivateKey
}

func CreateJwt(c JwtConfig) (string, error) {
	now := time.Now().UTC()
	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"user":  c.User,
		"data":  c.Data,
		"scope": c.Scope,
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"sub":   c.Subject,
		"exp":   now.Add(c.ExpireIn).Unix(),
	}).SignedString(c.PrivateKey)

	if err != nil {
		return "", err
	}
	return token, nil
}

func ValidateStruct(err error) []*ErrorResponse {
	var errs []*ErrorResponse
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, err := range validationErrors {
			var element ErrorResponse
			element.FailedField = err.StructNamespace()
			element.Tag = err.Tag()
			element.Value = err.Param()
			errs = append(errs, &element)
		}
	}
	return errs
}

func ConvertConfig[T, S any](input *T) (*S, error) {
	res, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}

	cfg := new(S)
	err = json.Unmarshal(res, cfg)

	return cfg, err
}
