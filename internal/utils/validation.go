package utils

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"medical-booking-server/internal/models"
	"medical-booking-server/internal/scheduling"
)

var (
	crmPattern = regexp.MustCompile(`^\d{4,7}$`)

	brazilianStates = map[string]bool{
		"AC": true, "AL": true, "AP": true, "AM": true, "BA": true, "CE": true, "DF": true,
		"ES": true, "GO": true, "MA": true, "MT": true, "MS": true, "MG": true, "PA": true,
		"PB": true, "PR": true, "PE": true, "PI": true, "RJ": true, "RN": true, "RS": true,
		"RO": true, "RR": true, "SC": true, "SP": true, "SE": true, "TO": true,
	}

	validate = newValidator()
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		registerCustom(v)
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	registerCustom(v)
	return v
}

// registerCustom adds the domain tags: cpf, crm, uf, clock and date.
func registerCustom(v *validator.Validate) {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	must(v.RegisterValidation("cpf", func(fl validator.FieldLevel) bool { return ValidCPF(fl.Field().String()) }))
	must(v.RegisterValidation("crm", func(fl validator.FieldLevel) bool { return crmPattern.MatchString(fl.Field().String()) }))
	must(v.RegisterValidation("uf", func(fl validator.FieldLevel) bool { return ValidUF(fl.Field().String()) }))
	must(v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := scheduling.ParseClock(fl.Field().String())
		return err == nil
	}))
	must(v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(models.DateLayout, fl.Field().String())
		return err == nil
	}))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// ValidCPF checks length and both check digits. Punctuation is ignored.
func ValidCPF(cpf string) bool {
	d := models.OnlyDigits(cpf)
	if len(d) != 11 || strings.Count(d, d[:1]) == 11 {
		return false
	}
	check := func(n int) byte {
		sum := 0
		for i := 0; i < n; i++ {
			sum += int(d[i]-'0') * (n + 1 - i)
		}
		r := sum * 10 % 11
		if r == 10 {
			r = 0
		}
		return byte('0' + r)
	}
	return check(9) == d[9] && check(10) == d[10]
}

// ValidUF reports whether s is a Brazilian state code.
func ValidUF(s string) bool {
	return brazilianStates[strings.ToUpper(s)]
}

// Validate performs validation on a struct.
func Validate(s interface{}) error {
	return validate.Struct(s)
}

// FormatValidationError formats validation errors into a readable string.
func FormatValidationError(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.Field()+" "+describe(e))
	}
	return strings.Join(messages, ", ")
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "required_without", "required_with":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "len":
		return fmt.Sprintf("must have length %s", e.Param())
	case "numeric":
		return "must contain only digits"
	case "oneof":
		return "must be one of: " + e.Param()
	case "uuid", "uuid4":
		return "must be a valid id"
	case "cpf":
		return "must be a valid CPF"
	case "crm":
		return "must have 4 to 7 digits"
	case "uf":
		return "must be a Brazilian state code"
	case "clock":
		return "must be a time as HH:MM"
	case "date":
		return "must be a date as YYYY-MM-DD"
	}
	return "failed on " + e.Tag()
}

func respondBindError(c *gin.Context, err error) {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		BadRequest(c, "Validation failed: "+FormatValidationError(err))
		return
	}
	BadRequest(c, "Invalid request payload: "+err.Error())
}

// BindAndValidate binds the request body to a struct and validates it.
// If validation fails, it sends a BadRequest response and returns false.
func BindAndValidate(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondBindError(c, err)
		return false
	}
	return true
}

// BindOptional is BindAndValidate for a JSON body that may be absent. An empty
// body leaves obj at its zero value, which is still validated.
func BindOptional(c *gin.Context, obj interface{}) bool {
	err := c.ShouldBindJSON(obj)
	if errors.Is(err, io.EOF) {
		err = binding.Validator.ValidateStruct(obj)
	}
	if err != nil {
		respondBindError(c, err)
		return false
	}
	return true
}

// BindForm binds a form or multipart body.
func BindForm(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBind(obj); err != nil {
		respondBindError(c, err)
		return false
	}
	return true
}

// BindQuery binds query string parameters.
func BindQuery(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		respondBindError(c, err)
		return false
	}
	return true
}
