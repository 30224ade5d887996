package services

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/leebenson/conform"
	errs "github.com/techagentng/findmenow/errors"
	"github.com/techagentng/findmenow/models"
)

// Validator trims and validates request structs, reporting failures keyed by JSON field name.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
	now      func() time.Time
}

func NewValidator(now func() time.Time) *Validator {
	v := &Validator{
		validate: validator.New(),
		now:      now,
	}

	english := en.New()
	uni := ut.New(english, english)
	v.trans, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v.validate, v.trans)

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.validate.RegisterValidation("missingdate", v.validMissingDate)
	_ = v.validate.RegisterTranslation("missingdate", v.trans,
		func(ut ut.Translator) error {
			return ut.Add("missingdate", "{0} must be a valid YYYY-MM-DD date not later than today", true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T("missingdate", fe.Field())
			return t
		},
	)
	return v
}

// validMissingDate accepts a calendar date no later than today in UTC.
func (v *Validator) validMissingDate(fl validator.FieldLevel) bool {
	d, err := time.Parse(models.DateLayout, fl.Field().String())
	if err != nil {
		return false
	}
	today := v.now().UTC().Format(models.DateLayout)
	return d.Format(models.DateLayout) <= today
}

// Struct trims the conform-tagged fields of s in place and validates it.
func (v *Validator) Struct(s interface{}) error {
	if err := conform.Strings(s); err != nil {
		return err
	}
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Translate(v.trans)
	}
	return errs.Validation(fields)
}
