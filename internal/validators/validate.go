package validators

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/sumitpatel93/ledger-harness/internal/ledger"
)

var entityIDRegex = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

func NewValidator() *validator.Validate {
	validate := validator.New()
	_ = validate.RegisterValidation("entity_id", entityIDValidation)
	validate.RegisterAlias("not_empty", "required")
	validate.RegisterStructValidation(transferValidation, ledger.Transfer{})
	validate.RegisterStructValidation(tokenCreateValidation, ledger.TokenCreate{})
	return validate
}

// IsEntityID reports whether id has the shard.realm.num form.
func IsEntityID(id string) bool {
	return entityIDRegex.MatchString(id)
}

func entityIDValidation(fl validator.FieldLevel) bool {
	return IsEntityID(fl.Field().String())
}

// transferValidation rejects transfers whose legs do not net to zero per asset.
func transferValidation(sl validator.StructLevel) {
	transfer := sl.Current().Interface().(ledger.Transfer)

	var hbars int64
	for _, leg := range transfer.Hbars {
		hbars += leg.Amount
	}
	if hbars != 0 {
		sl.ReportError(transfer.Hbars, "Hbars", "Hbars", "net_zero", fmt.Sprint(hbars))
	}

	tokens := make(map[ledger.TokenID]int64)
	for _, leg := range transfer.Tokens {
		tokens[leg.TokenID] += leg.Amount
	}
	for tokenID, sum := range tokens {
		if sum != 0 {
			sl.ReportError(transfer.Tokens, "Tokens", "Tokens", "net_zero", tokenID.String())
		}
	}

	if len(transfer.Hbars) == 0 && len(transfer.Tokens) == 0 {
		sl.ReportError(transfer.Hbars, "Hbars", "Hbars", "required", "")
	}
}

func tokenCreateValidation(sl validator.StructLevel) {
	token := sl.Current().Interface().(ledger.TokenCreate)
	if token.SupplyType == ledger.SupplyTypeFinite && token.InitialSupply > token.MaxSupply {
		sl.ReportError(token.InitialSupply, "InitialSupply", "InitialSupply", "ltefield", "MaxSupply")
	}
}

func ParseValidationError(errors validator.ValidationErrors) map[string]interface{} {
	fieldErrors := make(map[string]interface{})
	for _, err := range errors {
		fieldErrors[getFieldName(err)] = msgForFieldError(err)
	}
	return fieldErrors
}

// msgForFieldError gets the message for the given validation error (tag).
func msgForFieldError(fieldError validator.FieldError) string {
	switch fieldError.Tag() {
	case "required":
		return "This field is required"
	case "not_empty":
		return "This field cannot be empty"
	case "entity_id":
		return fmt.Sprintf("Invalid entity ID %q, expected shard.realm.num", fieldError.Value())
	case "net_zero":
		return fmt.Sprintf("Transfer legs do not net to zero (%s)", fieldError.Param())
	case "nefield":
		return fmt.Sprintf("Should differ from %s", lcFirst(fieldError.Param()))
	case "ltefield":
		return fmt.Sprintf("Should be less than or equal %s", lcFirst(fieldError.Param()))
	case "required_if":
		return "This field is required for the given configuration"
	case "oneof":
		params := strings.Join(strings.Split(fieldError.Param(), " "), ", ")
		return fmt.Sprintf("Unexpected value %q. Expected one of the following values: %s", fieldError.Value(), params)
	case "gt":
		if fieldError.Kind() == reflect.Slice || fieldError.Kind() == reflect.Array {
			return "Should have at least 1 element"
		}
		return fmt.Sprintf("Should be greater than %s", fieldError.Param())
	case "gte":
		return fmt.Sprintf("Should be greater than or equal %s", fieldError.Param())
	case "lte", "max":
		return fmt.Sprintf("Should be at most %s", fieldError.Param())
	case "ne":
		return fmt.Sprintf("Should not be %s", fieldError.Param())
	default:
		return "Invalid value"
	}
}

func getFieldName(fieldError validator.FieldError) string {
	// Ex.: structName.FieldName, structName.nestedStructName.nestedStructFieldName, structName.nestedStructName.nestedStructName....
	namespace := strings.Split(fieldError.StructNamespace(), ".")
	length := len(namespace)
	if length == 2 {
		return lcFirst(namespace[1])
	}

	if length > 2 {
		return fmt.Sprintf("%s.%s", lcFirst(namespace[length-2]), lcFirst(namespace[length-1]))
	}

	return lcFirst(namespace[0])
}

// lcFirst lowers the case of the first letter of the given string.
//
//	Example: Address -> address
func lcFirst(str string) string {
	for index, letter := range str {
		return string(unicode.ToLower(letter)) + str[index+1:]
	}
	return ""
}
