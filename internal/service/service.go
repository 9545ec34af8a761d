package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"github.com/aniiishetty/event/internal/dto"
	"github.com/aniiishetty/event/internal/metric"
	"github.com/aniiishetty/event/internal/model"
	"github.com/aniiishetty/event/internal/repo"
	"github.com/aniiishetty/event/pkg/validator"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Publisher hands a notification message to the delayed queue. Satisfied by
// *rabbit.Client and by fakes in tests.
type Publisher interface {
	Publish(message []byte, delaySeconds int) error
}

// RosterRenderer renders the bulk attendee PDF. Satisfied by *pdf.Renderer.
type RosterRenderer interface {
	RenderRoster(ctx context.Context, regs []model.Registration) ([]byte, error)
}

type Service interface {
	AddCollege(ctx *ginext.Context)
	GetColleges(ctx *ginext.Context)
	CheckCollege(ctx *ginext.Context)
	Register(ctx *ginext.Context)
	GetRegistrations(ctx *ginext.Context)
	RosterPDF(ctx *ginext.Context)
	Health(ctx *ginext.Context)
}

type service struct {
	repo          repo.Repository
	log           *zerolog.Logger
	publisher     Publisher
	renderer      RosterRenderer
	maxPhotoBytes int64
}

func NewService(repo repo.Repository, logger *zerolog.Logger, publisher Publisher, renderer RosterRenderer, maxPhotoBytes int64) Service {
	return &service{
		repo:          repo,
		log:           logger,
		publisher:     publisher,
		renderer:      renderer,
		maxPhotoBytes: maxPhotoBytes,
	}
}

func (s *service) AddCollege(ctx *ginext.Context) {
	var req dto.AddCollegeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadRequestError(ctx, dto.MsgCollegeNameEmpty)
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadRequestError(ctx, dto.MsgCollegeNameEmpty)
		return
	}

	id, err := s.repo.CreateCollege(ctx.Request.Context(), req.Name)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateCollege) {
			dto.BadRequestError(ctx, dto.MsgCollegeExists)
			return
		}
		s.log.Error().Err(err).Msg("failed to create college")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Int("college_id", id).Str("name", req.Name).Msg("college added")
	dto.CreatedWithID(ctx, "College added successfully", id)
}

func (s *service) GetColleges(ctx *ginext.Context) {
	limit, offset := pagination(ctx)

	colleges, err := s.repo.SearchColleges(ctx.Request.Context(), ctx.Query("search"), limit, offset)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to search colleges")
		dto.InternalServerError(ctx)
		return
	}

	resp := make([]dto.CollegeResponse, 0, len(colleges))
	for _, c := range colleges {
		resp = append(resp, dto.CollegeResponse{ID: c.ID, Name: c.Name})
	}
	ctx.JSON(200, resp)
}

func (s *service) CheckCollege(ctx *ginext.Context) {
	collegeID, err := strconv.Atoi(ctx.Param("collegeId"))
	if err != nil {
		dto.BadRequestMessage(ctx, dto.MsgInvalidCollegeID)
		return
	}

	registered, err := s.repo.CollegeHasRegistration(ctx.Request.Context(), collegeID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to check college registration")
		dto.InternalServerError(ctx)
		return
	}

	msg := "College is not yet registered."
	if registered {
		msg = "College is already registered by another user."
	}
	ctx.JSON(200, map[string]any{"isRegistered": registered, "message": msg})
}

// Register is the intake path. The checks run in a fixed order: required
// fields, designation-dependent college resolution, duplicate email,
// photo size, then the transactional insert. Nothing is written before all checks
// pass, and the notification job is published only after the 201 response
// body is decided.
func (s *service) Register(ctx *ginext.Context) {
	var req dto.RegisterForm
	if err := ctx.ShouldBind(&req); err != nil {
		dto.BadRequestMessage(ctx, "Invalid form data")
		metric.RegistrationsRejected.WithLabelValues(metric.CauseValidation).Inc()
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadRequestMessage(ctx, verr.Error())
		metric.RegistrationsRejected.WithLabelValues(metric.CauseValidation).Inc()
		return
	}

	photoFH, err := ctx.FormFile("photo")
	if err != nil {
		dto.BadRequestMessage(ctx, dto.MsgPhotoRequired)
		metric.RegistrationsRejected.WithLabelValues(metric.CauseValidation).Inc()
		return
	}

	designation, ok := model.ParseDesignation(req.Designation)
	if !ok {
		dto.BadRequestMessage(ctx, dto.MsgInvalidDesignation)
		metric.RegistrationsRejected.WithLabelValues(metric.CauseValidation).Inc()
		return
	}

	reg := &model.Registration{
		Name:        req.Name,
		Designation: designation,
		Phone:       req.Phone,
		Email:       req.Email,
		Reason:      req.Reason,
	}

	var collegeName string
	switch {
	case designation.RequiresCollegeID():
		if req.CollegeID == "" {
			dto.BadRequestMessage(ctx, dto.MsgCollegeIDRequired)
			metric.RegistrationsRejected.WithLabelValues(metric.CauseValidation).Inc()
			return
		}
		collegeID, err := strconv.Atoi(req.CollegeID)
		if err != nil {
			dto.BadRequestMessage(ctx, dto.MsgInvalidCollegeID)
			metric.RegistrationsRejected.WithLabelValues(metric.CauseValidation).Inc()
			return
		}
		college, err := s.repo.GetCollegeByID(ctx.Request.Context(), collegeID)
		if err != nil {
			if errors.Is(err, repo.ErrCollegeNotFound) {
				dto.BadRequestMessage(ctx, dto.MsgInvalidCollegeID)
				metric.RegistrationsRejected.WithLabelValues(metric.CauseValidation).Inc()
				return
			}
			s.log.Error().Err(err).Msg("failed to look up college")
			dto.InternalServerError(ctx)
			return
		}
		reg.CollegeID = &college.ID
		collegeName = college.Name

	case designation.ResolvesCollegeByName():
		if req.CollegeName == "" {
			dto.BadRequestMessage(ctx, dto.MsgCollegeNameEmpty)
			metric.RegistrationsRejected.WithLabelValues(metric.CauseValidation).Inc()
			return
		}
		college, err := s.repo.GetOrCreateCollegeByName(ctx.Request.Context(), req.CollegeName)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to resolve college by name")
			dto.InternalServerError(ctx)
			return
		}
		reg.CollegeID = &college.ID
		collegeName = college.Name

	default:
		committee := req.CommitteeMember
		if committee == "" {
			committee = model.DefaultCommitteeLabel
		}
		reg.CommitteeMember = &committee
	}

	exists, err := s.repo.EmailExists(ctx.Request.Context(), req.Email)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to check duplicate email")
		dto.InternalServerError(ctx)
		return
	}
	if exists {
		dto.BadRequestMessage(ctx, dto.MsgEmailExists)
		metric.RegistrationsRejected.WithLabelValues(metric.CauseConflict).Inc()
		return
	}

	if photoFH.Size > s.maxPhotoBytes {
		dto.BadRequestMessage(ctx, dto.MsgPhotoTooLarge)
		metric.RegistrationsRejected.WithLabelValues(metric.CauseValidation).Inc()
		return
	}

	reg.Photo, err = readFile(photoFH)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read photo upload")
		dto.InternalServerError(ctx)
		return
	}

	if paperFH, err := ctx.FormFile("researchPaper"); err == nil {
		reg.ResearchPaper, err = readFile(paperFH)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to read research paper upload")
			dto.InternalServerError(ctx)
			return
		}
	}

	id, eventID, err := s.repo.CreateRegistrationTx(ctx.Request.Context(), reg)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicateEmail):
			dto.BadRequestMessage(ctx, dto.MsgEmailExists)
			metric.RegistrationsRejected.WithLabelValues(metric.CauseConflict).Inc()
		case errors.Is(err, repo.ErrCollegeTaken):
			dto.BadRequestMessage(ctx, fmt.Sprintf(
				"The college %s is already registered by another user. Please contact support if this is a mistake.",
				collegeName,
			))
			metric.RegistrationsRejected.WithLabelValues(metric.CauseConflict).Inc()
		default:
			s.log.Error().Err(err).Msg("failed to create registration")
			dto.InternalServerError(ctx)
			metric.RegistrationsRejected.WithLabelValues(metric.CauseStorage).Inc()
		}
		return
	}

	s.log.Info().
		Int("registration_id", id).
		Int("event_id", eventID).
		Str("designation", string(designation)).
		Msg("registration created")
	metric.RegistrationsAccepted.Inc()

	ctx.JSON(201, map[string]any{
		"message":  "User registered successfully",
		"id":       id,
		"event_id": eventID,
	})

	// Post-response work. A publish failure here is logged only, the
	// registration itself already succeeded.
	payload, err := json.Marshal(dto.CreatedMessage{RegistrationID: id})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal notification message")
		return
	}
	if err := s.publisher.Publish(payload, 0); err != nil {
		s.log.Error().Err(err).Int("registration_id", id).Msg("failed to publish notification message")
	}
}

func (s *service) GetRegistrations(ctx *ginext.Context) {
	limit, offset := pagination(ctx)

	regs, err := s.repo.ListRegistrations(ctx.Request.Context(), ctx.Query("search"), limit, offset)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list registrations")
		dto.InternalServerError(ctx)
		return
	}

	resp := make([]dto.RegistrationResponse, 0, len(regs))
	for _, r := range regs {
		item := dto.RegistrationResponse{
			ID:          r.ID,
			Name:        r.Name,
			Designation: string(r.Designation),
			CollegeName: r.CollegeName,
			Phone:       r.Phone,
			Email:       r.Email,
			Reason:      r.Reason,
			EventID:     r.EventID,
			HasPaper:    r.HasPaper,
			CreatedAt:   r.CreatedAt,
		}
		if r.CommitteeMember != nil {
			item.CommitteeMember = *r.CommitteeMember
		}
		resp = append(resp, item)
	}
	ctx.JSON(200, resp)
}

func (s *service) RosterPDF(ctx *ginext.Context) {
	regs, err := s.repo.ListRegistrationsWithPhotos(ctx.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load registrations for roster")
		dto.InternalServerError(ctx)
		return
	}
	if len(regs) == 0 {
		dto.NotFoundMessage(ctx, dto.MsgNoRegistrations)
		return
	}

	pdfBytes, err := s.renderer.RenderRoster(ctx.Request.Context(), regs)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to render roster pdf")
		metric.PDFRenderFailures.Inc()
		dto.InternalServerError(ctx)
		return
	}
	metric.PDFsRendered.WithLabelValues("roster").Inc()

	ctx.Header("Content-Disposition", `attachment; filename="registrations.pdf"`)
	ctx.Data(200, "application/pdf", pdfBytes)
}

func (s *service) Health(ctx *ginext.Context) {
	if err := s.repo.Ping(ctx.Request.Context()); err != nil {
		s.log.Error().Err(err).Msg("health check failed")
		ctx.JSON(503, map[string]string{"status": "unhealthy"})
		return
	}
	ctx.JSON(200, map[string]string{"status": "ok"})
}

func pagination(ctx *ginext.Context) (limit, offset int) {
	page, err := strconv.Atoi(ctx.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(ctx.Query("page_size"))
	if err != nil || size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return size, (page - 1) * size
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
