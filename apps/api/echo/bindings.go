package echoapi

import "github.com/go-playground/validator/v10"

// Request bodies keep the original wire field names.

type EnrollRequest struct {
	Student string `json:"Student_ID" validate:"required,email"`
}

func (r *EnrollRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

type CheckOffRequest struct {
	Skill    string   `json:"Skill_Name" validate:"required"`
	Students []string `json:"Student_List" validate:"required,min=1,dive,required,email"`
}

func (r *CheckOffRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

type CreateCourseRequest struct {
	TemplateID string `json:"Template_ID" validate:"required"`
}

func (r *CreateCourseRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

type SuccessResponse struct {
	Success string `json:"success"`
}

type CreateCourseResponse struct {
	CourseID string `json:"Course_ID"`
	Error    string `json:"error,omitempty"`
}
