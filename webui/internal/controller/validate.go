package controller

import (
	"math"
	"strconv"
	"strings"

	"github.com/bookops/bookshelf-service/webui/internal/model"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

var formValidator = validator.New()

// parsedForm holds the numeric fields after parsing; range checks run on
// it via struct tags so they mirror the backend's constraints.
type parsedForm struct {
	Title  string  `validate:"required"`
	Author string  `validate:"required"`
	Year   int     `validate:"gte=0,lte=2100"`
	Rating float64 `validate:"gte=0,lte=5"`
	Price  float64 `validate:"gte=0"`
}

// ValidateForm checks the raw form values before anything touches the
// network. Every field is validated independently, so a form with three
// bad fields reports three messages at once. On success the trimmed,
// parsed payload is returned.
func ValidateForm(in model.FormInput) (model.BookPayload, map[string]string) {
	fieldErrs := map[string]string{}
	p := parsedForm{
		Title:  strings.TrimSpace(in.Title),
		Author: strings.TrimSpace(in.Author),
	}

	year, err := strconv.Atoi(strings.TrimSpace(in.Year))
	if err != nil {
		fieldErrs["year"] = "Year is required (number)."
	} else {
		p.Year = year
	}

	rating, err := strconv.ParseFloat(strings.TrimSpace(in.Rating), 64)
	if err != nil || math.IsNaN(rating) || math.IsInf(rating, 0) {
		fieldErrs["rating"] = "Rating must be a number."
	} else {
		p.Rating = rating
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(in.Price), 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		fieldErrs["price"] = "Price must be a number."
	} else {
		p.Price = price
	}

	if err := formValidator.Struct(p); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			for _, fe := range vErrs {
				field := strings.ToLower(fe.Field())
				if _, seen := fieldErrs[field]; seen {
					// a parse failure already reported this field
					continue
				}
				fieldErrs[field] = fieldMessage(field)
			}
		}
	}
	if len(fieldErrs) > 0 {
		return model.BookPayload{}, fieldErrs
	}

	return model.BookPayload{
		Title:    p.Title,
		Author:   p.Author,
		Year:     p.Year,
		Category: strings.TrimSpace(in.Category),
		Rating:   p.Rating,
		Price:    p.Price,
		ImageURL: strings.TrimSpace(in.ImageURL),
	}, nil
}

func fieldMessage(field string) string {
	switch field {
	case "title":
		return "Title is required."
	case "author":
		return "Author is required."
	case "year":
		return "Year must be between 0 and 2100."
	case "rating":
		return "Rating must be 0–5."
	case "price":
		return "Price must be >= 0."
	}
	return "Invalid value."
}
