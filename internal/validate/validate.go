// Package validate turns portal forms into field→message maps.
package validate

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"

	"regportal/internal/domain"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator
)

// Errors maps a form field (its json name) to a human message.
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+e[f])
	}
	return strings.Join(parts, "; ")
}

// labels are the names used in messages.
var labels = map[string]string{
	"name":            "Full Name",
	"phone":           "Phone Number",
	"email":           "Email Address",
	"department":      "Department",
	"dob":             "Date of Birth",
	"parentName":      "Parent Name",
	"parentEmail":     "Parent Email",
	"parentPhone":     "Parent Phone",
	"password":        "Password",
	"confirmPassword": "Confirm Password",
	"role":            "Role",
}

func label(field string) string {
	if l, ok := labels[field]; ok {
		return l
	}
	return field
}

type nowKey struct{}

func withNow(ctx context.Context, now time.Time) context.Context {
	return context.WithValue(ctx, nowKey{}, now)
}

func nowFrom(ctx context.Context) time.Time {
	if now, ok := ctx.Value(nowKey{}).(time.Time); ok {
		return now
	}
	return time.Now()
}

func init() {
	Validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// Use JSON tag names for errors instead of Go struct names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerTags()
	Validate.RegisterStructValidation(adminFormStructValidation, domain.AdminForm{})
}

// RegisterCustomTranslation registers the message for a validation tag.
// {0} is the field label, {1} the tag parameter.
func RegisterCustomTranslation(tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = Validate.RegisterTranslation(
		tag, Translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, label(fe.Field()), fe.Param())
			return s
		},
	)
}

// check runs the validator and converts its result into Errors.
func check(ctx context.Context, form any) error {
	err := Validate.StructCtx(ctx, form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validate form")
	}
	out := make(Errors, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = fe.Translate(Translator)
	}
	return out
}

// Registration validates the student form against the clock now.
func Registration(form domain.RegistrationForm, now time.Time) Errors {
	return asErrors(check(withNow(context.Background(), now), form.Trimmed()))
}

// AdminForm validates the add-admin form.
func AdminForm(form domain.AdminForm) Errors {
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(form.Email)
	form.Department = strings.TrimSpace(form.Department)
	return asErrors(check(context.Background(), form))
}

// Login validates the sign-in form.
func Login(form domain.LoginForm) Errors {
	form.Email = strings.TrimSpace(form.Email)
	return asErrors(check(context.Background(), form))
}

func asErrors(err error) Errors {
	if err == nil {
		return nil
	}
	var fe Errors
	if errors.As(err, &fe) {
		return fe
	}
	return Errors{"form": err.Error()}
}
