package nutrition

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/MacroScout/macroscout/engine/domain"
	"github.com/MacroScout/macroscout/engine/facts"
	"github.com/MacroScout/macroscout/pkg/fn"
)

// kcalPerKJ converts OpenFoodFacts energy_100g (kilojoules) to kcal when
// the kcal field is missing.
const kcalPerKJ = 4.184

const (
	offPageSize  = 5
	offUserAgent = "macroscout/1.0 (nutrition lookup)"
)

var defaultMirrors = []string{
	"https://world.openfoodfacts.org/cgi/search.pl",
	"https://world.openfoodfacts.net/cgi/search.pl",
}

// OpenFoodFacts queries the public OpenFoodFacts search API. Both mirrors
// are raced and the first usable answer wins. Outbound requests are paced
// by a politeness limiter shared across callers.
type OpenFoodFacts struct {
	client  *http.Client
	mirrors []string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewOpenFoodFacts creates the provider. A nil client gets a 15 second
// timeout, matching how long a lookup is worth waiting for.
func NewOpenFoodFacts(client *http.Client, logger *slog.Logger) *OpenFoodFacts {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenFoodFacts{
		client:  client,
		mirrors: defaultMirrors,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		logger:  logger,
	}
}

func (o *OpenFoodFacts) Name() string { return "openfoodfacts" }

// Lookup races all mirrors for the first product with usable nutriments.
func (o *OpenFoodFacts) Lookup(ctx context.Context, name string) (domain.NutritionFact, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return domain.NutritionFact{}, err
	}

	racers := make([]func(context.Context) fn.Result[domain.NutritionFact], len(o.mirrors))
	for i, mirror := range o.mirrors {
		mirror := mirror
		racers[i] = func(ctx context.Context) fn.Result[domain.NutritionFact] {
			return fn.FromPair(o.search(ctx, mirror, name))
		}
	}
	return fn.First(ctx, racers...).Unwrap()
}

func (o *OpenFoodFacts) search(ctx context.Context, baseURL, name string) (domain.NutritionFact, error) {
	q := url.Values{
		"search_terms":  {name},
		"search_simple": {"1"},
		"action":        {"process"},
		"json":          {"1"},
		"page_size":     {strconv.Itoa(offPageSize)},
		"fields":        {"product_name,code,nutriments"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return domain.NutritionFact{}, fmt.Errorf("nutrition: build request: %w", err)
	}
	req.Header.Set("User-Agent", offUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return domain.NutritionFact{}, fmt.Errorf("nutrition: query %s: %w", baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NutritionFact{}, fmt.Errorf("nutrition: %s returned status %d", baseURL, resp.StatusCode)
	}

	var payload struct {
		Products []offProduct `json:"products"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.NutritionFact{}, fmt.Errorf("nutrition: decode %s: %w", baseURL, err)
	}

	for _, p := range payload.Products {
		if !p.hasNutrition() {
			continue
		}
		return p.normalize(), nil
	}
	return domain.NutritionFact{}, ErrNotFound
}

// offProduct mirrors the subset of the search response we consume.
// Nutriment values arrive as either numbers or strings depending on the
// product, so they are decoded loosely and coerced.
type offProduct struct {
	ProductName string         `json:"product_name"`
	Code        string         `json:"code"`
	Nutriments  map[string]any `json:"nutriments"`
}

var nutrimentKeys = []string{
	"energy-kcal_100g", "energy_100g", "proteins_100g", "carbohydrates_100g", "fat_100g",
}

func (p offProduct) hasNutrition() bool {
	for _, k := range nutrimentKeys {
		if _, ok := p.Nutriments[k]; ok {
			return true
		}
	}
	return false
}

func (p offProduct) normalize() domain.NutritionFact {
	name := p.ProductName
	if name == "" {
		name = "Unknown"
	}

	calories := safeFloat(p.Nutriments["energy-kcal_100g"])
	if calories == 0 {
		calories = safeFloat(p.Nutriments["energy_100g"]) / kcalPerKJ
	}

	fact := domain.NutritionFact{
		Name:         name,
		Barcode:      p.Code,
		URL:          "https://world.openfoodfacts.org/product/" + p.Code,
		Calories100g: calories,
		Protein100g:  safeFloat(p.Nutriments["proteins_100g"]),
		Carbs100g:    safeFloat(p.Nutriments["carbohydrates_100g"]),
		Fat100g:      safeFloat(p.Nutriments["fat_100g"]),
	}
	fact.FactText = facts.FormatFactText(fact)
	return fact
}

func safeFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
