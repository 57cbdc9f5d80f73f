package domain

import "math"

const (
	MinRating = 0.0
	MaxRating = 10.0
)

// Ratings holds running averages per category. Violence and pickpocketing are
// "higher is worse" categories.
type Ratings struct {
	Security      float64 `json:"security"`
	Violence      float64 `json:"violence"`
	Welcoming     float64 `json:"welcoming"`
	StreetFood    float64 `json:"streetFood"`
	Restaurants   float64 `json:"restaurants"`
	Pickpocketing float64 `json:"pickpocketing"`
	QualityOfLife float64 `json:"qualityOfLife"`
}

// Score is the display score: the mean of all seven categories with the two
// negative ones inverted, rounded to one decimal.
func (r Ratings) Score() float64 {
	sum := r.Security +
		(MaxRating - r.Violence) +
		r.Welcoming +
		r.StreetFood +
		r.Restaurants +
		(MaxRating - r.Pickpocketing) +
		r.QualityOfLife
	return roundTenth(sum / 7)
}

// AggregateScore computes Score from a loosely typed map. Missing categories
// are treated as 0, so a missing inverted category counts as 10.
func AggregateScore(m map[string]float64) float64 {
	return Ratings{
		Security:      m["security"],
		Violence:      m["violence"],
		Welcoming:     m["welcoming"],
		StreetFood:    m["streetFood"],
		Restaurants:   m["restaurants"],
		Pickpocketing: m["pickpocketing"],
		QualityOfLife: m["qualityOfLife"],
	}.Score()
}

// Fold adds one submission to the running averages over n previous submissions.
func (r Ratings) Fold(n int, in Ratings) Ratings {
	avg := func(old, v float64) float64 {
		return (old*float64(n) + v) / float64(n+1)
	}
	return Ratings{
		Security:      avg(r.Security, in.Security),
		Violence:      avg(r.Violence, in.Violence),
		Welcoming:     avg(r.Welcoming, in.Welcoming),
		StreetFood:    avg(r.StreetFood, in.StreetFood),
		Restaurants:   avg(r.Restaurants, in.Restaurants),
		Pickpocketing: avg(r.Pickpocketing, in.Pickpocketing),
		QualityOfLife: avg(r.QualityOfLife, in.QualityOfLife),
	}
}

// RatingInput is one user's rating submission. Every field is required.
type RatingInput struct {
	UserID        string   `json:"userId"`
	Username      *string  `json:"username"`
	IsAnonymous   bool     `json:"isAnonymous"`
	Security      *float64 `json:"security"`
	Violence      *float64 `json:"violence"`
	Welcoming     *float64 `json:"welcoming"`
	StreetFood    *float64 `json:"streetFood"`
	Restaurants   *float64 `json:"restaurants"`
	Pickpocketing *float64 `json:"pickpocketing"`
	QualityOfLife *float64 `json:"qualityOfLife"`
}

// Ratings validates the submission and returns it as a Ratings value.
func (in RatingInput) Ratings() (Ratings, error) {
	fields := []struct {
		name  string
		value *float64
	}{
		{"security", in.Security},
		{"violence", in.Violence},
		{"welcoming", in.Welcoming},
		{"streetFood", in.StreetFood},
		{"restaurants", in.Restaurants},
		{"pickpocketing", in.Pickpocketing},
		{"qualityOfLife", in.QualityOfLife},
	}
	for _, f := range fields {
		if f.value == nil {
			return Ratings{}, ValidationError{Field: f.name, Reason: "is required"}
		}
		v := *f.value
		if math.IsNaN(v) || v < MinRating || v > MaxRating {
			return Ratings{}, ValidationError{Field: f.name, Reason: "must be within [0, 10]"}
		}
	}
	return Ratings{
		Security:      *in.Security,
		Violence:      *in.Violence,
		Welcoming:     *in.Welcoming,
		StreetFood:    *in.StreetFood,
		Restaurants:   *in.Restaurants,
		Pickpocketing: *in.Pickpocketing,
		QualityOfLife: *in.QualityOfLife,
	}, nil
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
