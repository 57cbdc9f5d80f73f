package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/totegamma/where/internal/domain"
)

func TestLocationModelConversion(t *testing.T) {
	name := "alice"
	loc := domain.Location{
		ID:          "loc_1",
		Name:        "Plaza",
		Latitude:    1.5,
		Longitude:   -3.25,
		Images:      []string{"a"},
		AllImages:   []string{"a", "b"},
		Ratings:     domain.Ratings{Security: 7, Pickpocketing: 2},
		RatingCount: 3,
		CreatedBy:   "u1",
		CreatedAt:   1700000000000,
		CID:         "bafy",
		Contributors: []domain.Contributor{
			{UserID: "u1", Username: &name, Contribution: domain.ContributionImage, CreatedAt: 1},
			{UserID: "u2", IsAnonymous: true, Contribution: domain.ContributionRating, CreatedAt: 2},
		},
	}

	row := locationToModel(loc)
	assert.Equal(t, 7.0, row.Security)
	assert.Len(t, row.Contributors, 2)
	assert.Equal(t, 1, row.Contributors[1].Position)
	assert.Equal(t, "loc_1", row.Contributors[0].LocationID)

	back := locationFromModel(row)
	assert.Equal(t, loc.Ratings, back.Ratings)
	assert.Equal(t, loc.AllImages, back.AllImages)
	assert.Equal(t, loc.Contributors, back.Contributors)
	assert.Equal(t, "bafy", back.CID)
	assert.NotNil(t, back.Comments)
}
