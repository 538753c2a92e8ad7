package controllers

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"storefront-backend/database"
	"storefront-backend/mailer"
	"storefront-backend/middlewares"
	"storefront-backend/models"
	"storefront-backend/utils"
)

const signupRequestSubject = "Request to join"

// SignupNotifier tells the admin inbox about a new membership request.
type SignupNotifier interface {
	SignupRequest(to, subject string, data mailer.SignupRequestData)
}

type QuestionAnswer struct {
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer"`
}

type SignupRequestInput struct {
	FirstName    string           `json:"first_name" validate:"required,max=100"`
	LastName     string           `json:"last_name" validate:"required,max=100"`
	EmailAddress string           `json:"email_address" validate:"required,email"`
	Results      []QuestionAnswer `json:"results" validate:"dive"`
}

type SignupRequestController struct {
	db            *gorm.DB
	notifier      SignupNotifier
	adminTo       string
	subjectPrefix string
	log           zerolog.Logger
}

func NewSignupRequestController(db *gorm.DB, notifier SignupNotifier, adminTo, subjectPrefix string, log zerolog.Logger) *SignupRequestController {
	return &SignupRequestController{db: db, notifier: notifier, adminTo: adminTo, subjectPrefix: subjectPrefix, log: log}
}

// CreateSignupRequest stores a pending membership request and emails the admin.
func (s *SignupRequestController) CreateSignupRequest(c *fiber.Ctx) error {
	var input SignupRequestInput
	if err := middlewares.BindAndValidate(c, &input); err != nil {
		return err
	}

	questionnaire, err := json.Marshal(input.Results)
	if err != nil {
		return err
	}

	req := models.SignupRequest{
		FirstName:     strings.TrimSpace(input.FirstName),
		LastName:      strings.TrimSpace(input.LastName),
		EmailAddress:  strings.ToLower(strings.TrimSpace(input.EmailAddress)),
		Questionnaire: datatypes.JSON(questionnaire),
		Status:        models.SignupPending,
	}
	if err := database.FromCtx(c, s.db).Create(&req).Error; err != nil {
		return err
	}

	answers := make([]mailer.Answer, 0, len(input.Results))
	for _, r := range input.Results {
		answers = append(answers, mailer.Answer{Question: r.Question, Answer: r.Answer})
	}
	s.notifier.SignupRequest(s.adminTo, s.subjectPrefix+signupRequestSubject, mailer.SignupRequestData{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		EmailAddress: req.EmailAddress,
		Answers:      answers,
	})

	s.log.Info().Str("request_id", req.Id).Msg("signup request received")
	return c.Status(fiber.StatusOK).SendString(eventReceived)
}

func (s *SignupRequestController) GetSignupRequests(c *fiber.Ctx) error {
	status := c.Query("status", models.SignupPending)
	if status != models.SignupPending && status != models.SignupApproved && status != models.SignupDeclined {
		return fiber.NewError(fiber.StatusBadRequest, "invalid status filter")
	}

	limit, offset := utils.Pagination(c.Query("limit"), c.Query("offset"), 100, 500)

	var requests []models.SignupRequest
	if err := database.FromCtx(c, s.db).
		Where("status = ?", status).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&requests).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"requests": requests,
		"message":  "success",
	})
}

func (s *SignupRequestController) DeclineSignupRequest(c *fiber.Ctx) error {
	id := c.Params("id")

	res := database.FromCtx(c, s.db).
		Model(&models.SignupRequest{}).
		Where("id = ?", id).
		Update("status", models.SignupDeclined)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "signup request not found")
	}
	return c.JSON(fiber.Map{"message": "success"})
}
