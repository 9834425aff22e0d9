package backend

// FoodItem is one recognized food in a meal analysis.
type FoodItem struct {
	Name     string  `json:"name"`
	Amount   string  `json:"amount"`
	Calories int     `json:"calories"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
}

// MealAnalysis is the structured result of the analyze-meal endpoint.
type MealAnalysis struct {
	FoodItems        []FoodItem `json:"food_items"`
	TotalCalories    int        `json:"total_calories"`
	TotalProtein     float64    `json:"total_protein"`
	TotalFat         float64    `json:"total_fat"`
	TotalCarbs       float64    `json:"total_carbs"`
	TotalSugar       float64    `json:"total_sugar"`
	TotalFiber       float64    `json:"total_fiber"`
	TotalSodium      float64    `json:"total_sodium"`
	CharacterComment string     `json:"character_comment"`
}

// ExerciseAnalysis is the result of the analyze-exercise endpoint.
type ExerciseAnalysis struct {
	CaloriesBurned int `json:"calories_burned"`
}

type mealAnalysisRequest struct {
	ImageBase64 string `json:"image_base64,omitempty"`
	Description string `json:"description,omitempty"`
}

type exerciseAnalysisRequest struct {
	Description     string `json:"description"`
	DurationMinutes int    `json:"duration_minutes"`
}

// TokenPair is the credential set returned by the auth endpoints.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	UserID       string `json:"user_id"`
}

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
