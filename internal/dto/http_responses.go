package dto

import (
	"time"

	"github.com/wb-go/wbf/ginext"
)

const (
	MsgInvalidDesignation = "Invalid designation"
	MsgCollegeIDRequired  = "College ID is required for this designation"
	MsgCollegeNameEmpty   = "College name is required"
	MsgInvalidCollegeID   = "Invalid college id"
	MsgEmailExists        = "Email already exists"
	MsgPhotoTooLarge      = "Photo too large"
	MsgPhotoRequired      = "Photo is required"
	MsgNoRegistrations    = "No registrations found"
	MsgCollegeExists      = "College already exists"
	MsgServerError        = "Server error"
)

// AddCollegeRequest is the body of POST /api/colleges/add.
type AddCollegeRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// RegisterForm carries the text fields of the multipart registration
// submission. File parts (photo, researchPaper) are read separately.
type RegisterForm struct {
	Name            string `form:"name" validate:"required,max=255"`
	Designation     string `form:"designation" validate:"required,designation"`
	CollegeID       string `form:"collegeId"`
	CollegeName     string `form:"collegeName"`
	CommitteeMember string `form:"committeeMember"`
	Phone           string `form:"phone" validate:"required,max=32"`
	Email           string `form:"email" validate:"required,email"`
	Reason          string `form:"reason" validate:"required,visitreason"`
}

type CollegeResponse struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type RegistrationResponse struct {
	ID              int       `json:"id"`
	Name            string    `json:"name"`
	Designation     string    `json:"designation"`
	CollegeName     string    `json:"college_name,omitempty"`
	CommitteeMember string    `json:"committee_member,omitempty"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email"`
	Reason          string    `json:"reason"`
	EventID         int       `json:"event_id"`
	HasPaper        bool      `json:"has_research_paper"`
	CreatedAt       time.Time `json:"created_at"`
}

// CreatedMessage is the message published to the notification queue after a
// registration row is committed. Attempt starts at zero and is incremented
// on every redelivery the worker schedules.
type CreatedMessage struct {
	RegistrationID int `json:"registration_id"`
	Attempt        int `json:"attempt"`
}

// Response helpers keep the original API's body shapes: {message, id} on
// success, {message} for client faults, {error} for server faults.

func BadRequestMessage(c *ginext.Context, msg string) {
	c.JSON(400, map[string]string{"message": msg})
}

func BadRequestError(c *ginext.Context, msg string) {
	c.JSON(400, map[string]string{"error": msg})
}

func NotFoundMessage(c *ginext.Context, msg string) {
	c.JSON(404, map[string]string{"message": msg})
}

func InternalServerError(c *ginext.Context) {
	c.JSON(500, map[string]string{"error": MsgServerError})
}

func CreatedWithID(c *ginext.Context, msg string, id int) {
	c.JSON(201, map[string]any{"message": msg, "id": id})
}
