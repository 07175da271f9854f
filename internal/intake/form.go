package intake

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"improbable-love/internal/models"

	"github.com/go-playground/validator/v10"
)

// Step 是表单步骤，从 1 开始
type Step int

const (
	StepPartnerOne Step = 1
	StepPartnerTwo Step = 2
	StepMeeting    Step = 3
)

// 表单导航错误
var (
	ErrFirstStep = errors.New("already at the first step")
	ErrLastStep  = errors.New("already at the last step")
)

// MeetingMethod 是“如何相识”的一个选项
type MeetingMethod struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// MeetingMethods 列出可选的相识方式
var MeetingMethods = []MeetingMethod{
	{Value: "friends", Label: "Through Friends"},
	{Value: "online", Label: "Online Dating"},
	{Value: "work", Label: "At Work"},
	{Value: "school", Label: "At School"},
	{Value: "hobbies", Label: "Through Hobbies"},
	{Value: "other", Label: "Other"},
}

// howMetRule 必须与 MeetingMethods 保持一致
const howMetRule = "oneof=friends online work school hobbies other"

// Partner 是一位伴侣的信息
type Partner struct {
	FirstName     string       `json:"firstName" validate:"required,notblank"`
	BirthLocation *models.City `json:"birthLocation" validate:"required"`
}

// Meeting 是相识的地点和方式
type Meeting struct {
	Location *models.City `json:"location" validate:"required"`
	HowMet   string       `json:"howMet" validate:"oneof=friends online work school hobbies other"`
}

// Form 是三步表单的数据和当前步骤
type Form struct {
	Step       Step    `json:"step"`
	PartnerOne Partner `json:"partnerOne"`
	PartnerTwo Partner `json:"partnerTwo"`
	Meeting    Meeting `json:"meeting"`
}

// FieldError 描述一个字段的校验错误
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 汇总一个或多个字段错误
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return strings.Join(msgs, "; ")
}

// NewForm 返回停在第一步的空表单
func NewForm() *Form {
	return &Form{Step: StepPartnerOne}
}

// Next 校验当前步骤后前进一步
func (f *Form) Next() error {
	if f.Step >= StepMeeting {
		return ErrLastStep
	}
	if err := f.ValidateStep(f.Step); err != nil {
		return err
	}
	f.Step++
	return nil
}

// Back 回到上一步，不做校验
func (f *Form) Back() error {
	if f.Step <= StepPartnerOne {
		return ErrFirstStep
	}
	f.Step--
	return nil
}

// ValidateStep 校验指定步骤的字段
func (f *Form) ValidateStep(step Step) error {
	var fields []FieldError
	switch step {
	case StepPartnerOne:
		fields = validateSection("partnerOne", f.PartnerOne)
	case StepPartnerTwo:
		fields = validateSection("partnerTwo", f.PartnerTwo)
	case StepMeeting:
		fields = validateSection("meeting", f.Meeting)
	default:
		return fmt.Errorf("unknown step %d", step)
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Validate 校验整个表单
func (f *Form) Validate() error {
	var fields []FieldError
	fields = append(fields, validateSection("partnerOne", f.PartnerOne)...)
	fields = append(fields, validateSection("partnerTwo", f.PartnerTwo)...)
	fields = append(fields, validateSection("meeting", f.Meeting)...)
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// IsMeetingMethod 判断取值是否为可选的相识方式
func IsMeetingMethod(value string) bool {
	return validate.Var(value, howMetRule) == nil
}

// fieldMessages 按字段给出面向用户的提示
var fieldMessages = map[string]string{
	"firstName":     "First name is required",
	"birthLocation": "Select a birth location",
	"location":      "Select where you met",
	"howMet":        "Choose how you met",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// 错误路径使用 JSON 字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// validateSection 校验表单的一个部分，城市内部字段的错误归到城市字段上
func validateSection(prefix string, section any) []FieldError {
	err := validate.Struct(section)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: prefix, Message: err.Error()}}
	}

	var fields []FieldError
	seen := make(map[string]bool)
	for _, fe := range verrs {
		// Namespace 形如 Partner.birthLocation.country
		parts := strings.Split(fe.Namespace(), ".")
		if len(parts) < 2 {
			continue
		}
		name := parts[1]
		if seen[name] {
			continue
		}
		seen[name] = true
		msg, ok := fieldMessages[name]
		if !ok {
			msg = fmt.Sprintf("failed %s", fe.Tag())
		}
		fields = append(fields, FieldError{Field: prefix + "." + name, Message: msg})
	}
	return fields
}
