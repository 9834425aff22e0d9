package savedmeals

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"calotrack/internal/logs"
	"calotrack/internal/shared/storage/kv"
)

type fakeSaver struct {
	names    []string
	payloads []logs.MealPayload
	days     []logs.DayKey
}

func (f *fakeSaver) SaveMealInstantly(ctx context.Context, name string, payload logs.MealPayload, day logs.DayKey) (string, error) {
	f.names = append(f.names, name)
	f.payloads = append(f.payloads, payload)
	f.days = append(f.days, day)
	return "entry-1", nil
}

func newHandlerFixture(t *testing.T) (*Store, *fakeSaver, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := NewStore(context.Background(), kv.NewMemory())
	saver := &fakeSaver{}

	h := NewHandler(store, saver)
	h.now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }

	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	return store, saver, r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func TestSavedMealCreateAndList(t *testing.T) {
	_, _, r := newHandlerFixture(t)

	w := do(r, http.MethodPost, "/api/v1/meals/saved", `{"name":"Morning oats","calories":320,"protein":12}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/api/v1/meals/saved", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Meals []struct {
			Name      string           `json:"name"`
			Emoji     string           `json:"emoji"`
			Nutrition logs.MealPayload `json:"nutrition"`
		} `json:"meals"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Meals) != 1 {
		t.Fatalf("meals = %d, want 1", len(resp.Meals))
	}
	if resp.Meals[0].Name != "Morning oats" || resp.Meals[0].Nutrition.Calories != 320 {
		t.Fatalf("meal = %+v", resp.Meals[0])
	}
}

func TestSavedMealCreateValidation(t *testing.T) {
	_, _, r := newHandlerFixture(t)

	if w := do(r, http.MethodPost, "/api/v1/meals/saved", `{"calories":100}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing name: status = %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/v1/meals/saved", `{"name":"x","calories":-5}`); w.Code != http.StatusBadRequest {
		t.Errorf("negative calories: status = %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/api/v1/meals/saved", `{"name":"x","image_base64":"%%%"}`); w.Code != http.StatusBadRequest {
		t.Errorf("bad base64: status = %d", w.Code)
	}
}

func TestSavedMealUpdateAndDelete(t *testing.T) {
	store, _, r := newHandlerFixture(t)
	id, _ := store.Add(context.Background(), Meal{Name: "Curry"})

	w := do(r, http.MethodPut, "/api/v1/meals/saved/"+id, `{"name":"Mild curry","calories":550}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if m, _ := store.Get(id); m.Name != "Mild curry" {
		t.Fatalf("meal = %+v", m)
	}

	if w := do(r, http.MethodPut, "/api/v1/meals/saved/ghost", `{"name":"x"}`); w.Code != http.StatusNotFound {
		t.Errorf("update unknown id: status = %d", w.Code)
	}

	if w := do(r, http.MethodDelete, "/api/v1/meals/saved/"+id, ""); w.Code != http.StatusOK {
		t.Errorf("delete: status = %d", w.Code)
	}
	if w := do(r, http.MethodDelete, "/api/v1/meals/saved/"+id, ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete: status = %d", w.Code)
	}
}

func TestLogSavedMeal(t *testing.T) {
	store, saver, r := newHandlerFixture(t)
	id, _ := store.Add(context.Background(), Meal{
		Name:      "Bento",
		Nutrition: logs.MealPayload{Calories: 650, Protein: 28},
	})

	w := do(r, http.MethodPost, "/api/v1/meals/saved/"+id+"/log", `{"day":"2025-06-16"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	if len(saver.names) != 1 || saver.names[0] != "Bento" {
		t.Fatalf("saver names = %v", saver.names)
	}
	if saver.payloads[0].Calories != 650 || saver.payloads[0].Protein != 28 {
		t.Fatalf("saver payload = %+v", saver.payloads[0])
	}
	if saver.days[0] != "2025-06-16" {
		t.Fatalf("saver day = %s", saver.days[0])
	}
}

func TestLogSavedMealDefaultsToToday(t *testing.T) {
	store, saver, r := newHandlerFixture(t)
	id, _ := store.Add(context.Background(), Meal{Name: "Bento"})

	w := do(r, http.MethodPost, "/api/v1/meals/saved/"+id+"/log", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if saver.days[0] != "2025-06-15" {
		t.Fatalf("saver day = %s, want today", saver.days[0])
	}
}

func TestLogSavedMealUnknownID(t *testing.T) {
	_, saver, r := newHandlerFixture(t)

	w := do(r, http.MethodPost, "/api/v1/meals/saved/ghost/log", `{"day":"2025-06-15"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	if len(saver.names) != 0 {
		t.Fatal("nothing should be logged for an unknown id")
	}
}
