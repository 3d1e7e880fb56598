package server

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

var translator ut.Translator

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		english := en.New()
		uni := ut.New(english, english)
		translator, _ = uni.GetTranslator("en")
		if err := entranslations.RegisterDefaultTranslations(v, translator); err != nil {
			translator = nil
		}
	}
}

// bindingErrorMessage turns a failed request binding into readable
// field-level messages.
func bindingErrorMessage(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && translator != nil {
		parts := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			parts = append(parts, fieldError.Translate(translator))
		}
		return strings.Join(parts, "; ")
	}
	return err.Error()
}
