package account

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const (
	endpointGenerateLink = "%s/auth/v1/admin/generate_link"

	linkTypeSignup = "signup"

	errCodeEmailExists = "email_exists"
)

type generateLinkPayload struct {
	Data       Metadata `json:"data,omitempty"`
	Email      string   `json:"email"`
	Password   string   `json:"password"`
	RedirectTo string   `json:"redirect_to,omitempty"`
	Type       string   `json:"type"`
}

type generateLinkResponse struct {
	ActionLink string `json:"action_link"`
}

type providerError struct {
	Code      int    `json:"code"`
	ErrorCode string `json:"error_code"`
	Msg       string `json:"msg"`
}

type httpService struct {
	baseURL    string
	client     *http.Client
	serviceKey string
}

// HTTPService returns a Service implementation talking to the hosted
// account backend's admin API.
func HTTPService(baseURL, serviceKey string, client *http.Client) Service {
	if client == nil {
		client = http.DefaultClient
	}

	return &httpService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     client,
		serviceKey: serviceKey,
	}
}

func (s *httpService) GenerateSignupLink(
	ctx context.Context,
	email, password string,
	meta Metadata,
	redirectURL string,
) (string, error) {
	body, err := json.Marshal(generateLinkPayload{
		Data:       meta,
		Email:      email,
		Password:   password,
		RedirectTo: redirectURL,
		Type:       linkTypeSignup,
	})
	if err != nil {
		return "", wrapError(ErrProvider, "encode payload: %s", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		fmt.Sprintf(endpointGenerateLink, s.baseURL),
		bytes.NewReader(body),
	)
	if err != nil {
		return "", wrapError(ErrProvider, "build request: %s", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.serviceKey)

	res, err := s.client.Do(req)
	if err != nil {
		return "", wrapError(ErrProvider, "generate link: %s", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		perr := providerError{}
		_ = json.NewDecoder(res.Body).Decode(&perr)

		if perr.ErrorCode == errCodeEmailExists ||
			res.StatusCode == http.StatusUnprocessableEntity {
			return "", wrapError(ErrAlreadyRegistered, "%s", email)
		}

		return "", wrapError(
			ErrProvider,
			"status %d code %q", res.StatusCode, perr.ErrorCode,
		)
	}

	link := generateLinkResponse{}

	if err := json.NewDecoder(res.Body).Decode(&link); err != nil {
		return "", wrapError(ErrProvider, "decode response: %s", err)
	}

	if link.ActionLink == "" {
		return "", wrapError(ErrProvider, "empty action link")
	}

	return link.ActionLink, nil
}
