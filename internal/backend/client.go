// Package backend is the typed client for the remote analysis service. The
// service is opaque beyond this request/response contract.
package backend

import (
	"context"
	"encoding/base64"
	"net/http"

	"calotrack/internal/netclient"
)

// AnalysisClient is the surface the coordinator depends on. Narrow so tests
// can substitute a fake.
type AnalysisClient interface {
	AnalyzeMealImage(ctx context.Context, image []byte) (MealAnalysis, error)
	AnalyzeMealText(ctx context.Context, description string) (MealAnalysis, error)
	AnalyzeExercise(ctx context.Context, description string, durationMinutes int) (ExerciseAnalysis, error)
}

// Client implements AnalysisClient plus the auth operations over netclient.
type Client struct {
	net *netclient.Client
}

// NewClient constructs a Client.
func NewClient(net *netclient.Client) *Client {
	return &Client{net: net}
}

// AnalyzeMealImage submits an image for nutrient analysis.
func (c *Client) AnalyzeMealImage(ctx context.Context, image []byte) (MealAnalysis, error) {
	req := mealAnalysisRequest{ImageBase64: base64.StdEncoding.EncodeToString(image)}
	var out MealAnalysis
	if err := c.net.Do(ctx, http.MethodPost, "/ai/analyze-meal", req, &out, true); err != nil {
		return MealAnalysis{}, err
	}
	return out, nil
}

// AnalyzeMealText submits a free-text meal description for analysis.
func (c *Client) AnalyzeMealText(ctx context.Context, description string) (MealAnalysis, error) {
	req := mealAnalysisRequest{Description: description}
	var out MealAnalysis
	if err := c.net.Do(ctx, http.MethodPost, "/ai/analyze-meal", req, &out, true); err != nil {
		return MealAnalysis{}, err
	}
	return out, nil
}

// AnalyzeExercise submits an exercise description and duration.
func (c *Client) AnalyzeExercise(ctx context.Context, description string, durationMinutes int) (ExerciseAnalysis, error) {
	req := exerciseAnalysisRequest{Description: description, DurationMinutes: durationMinutes}
	var out ExerciseAnalysis
	if err := c.net.Do(ctx, http.MethodPost, "/ai/analyze-exercise", req, &out, true); err != nil {
		return ExerciseAnalysis{}, err
	}
	return out, nil
}

// SignIn exchanges credentials for a token pair and persists it.
func (c *Client) SignIn(ctx context.Context, email, password string) (TokenPair, error) {
	return c.authCall(ctx, "/auth/login", email, password)
}

// SignUp creates an account and persists the returned token pair.
func (c *Client) SignUp(ctx context.Context, email, password string) (TokenPair, error) {
	return c.authCall(ctx, "/auth/signup", email, password)
}

func (c *Client) authCall(ctx context.Context, path, email, password string) (TokenPair, error) {
	var pair TokenPair
	if err := c.net.Do(ctx, http.MethodPost, path, authRequest{Email: email, Password: password}, &pair, false); err != nil {
		return TokenPair{}, err
	}
	c.net.Tokens().SetPair(ctx, pair.AccessToken, pair.RefreshToken, pair.UserID)
	return pair, nil
}

var _ AnalysisClient = (*Client)(nil)
