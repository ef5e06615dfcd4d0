package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/raushanprabhakar1/voice-agent/internal/database"
	"github.com/raushanprabhakar1/voice-agent/internal/domain"
	"github.com/raushanprabhakar1/voice-agent/internal/metrics"
	"github.com/raushanprabhakar1/voice-agent/internal/models"
	"github.com/raushanprabhakar1/voice-agent/internal/schedule"
	"github.com/raushanprabhakar1/voice-agent/internal/service"
)

const identifyFirstMessage = "User must be identified first. Please use identify_user tool."

// Dispatcher routes named tool calls from the conversation layer to the
// booking ledger. It owns the session context (the identified phone) and
// guarantees the structured result contract: every internal failure maps to
// an {error: message} result, nothing is raised past this boundary.
type Dispatcher struct {
	ledger    domain.Ledger
	sessions  domain.SessionRepository
	summaries domain.SummaryQueue
	logger    *zerolog.Logger
	now       func() time.Time
}

func NewDispatcher(ledger domain.Ledger, sessions domain.SessionRepository, summaries domain.SummaryQueue, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		ledger:    ledger,
		sessions:  sessions,
		summaries: summaries,
		logger:    logger,
		now:       time.Now,
	}
}

// Dispatch executes one tool call within a session. args is the raw JSON
// argument map from the model; malformed arguments produce an error result,
// never a panic or Go error.
func (d *Dispatcher) Dispatch(ctx context.Context, sessionID, tool string, args json.RawMessage) Result {
	session, err := d.loadSession(ctx, sessionID)
	if err != nil {
		d.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to load session")
		return failure("session state unavailable")
	}

	result := d.execute(ctx, session, tool, args)

	outcome := "success"
	if _, failed := result["error"]; failed {
		outcome = "error"
	}
	metrics.IncToolCall(tool, outcome)

	session.ToolCalls = append(session.ToolCalls, tool)
	session.UpdatedAt = d.now()
	if err := d.sessions.SetSession(ctx, session); err != nil {
		d.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to persist session")
	}

	return result
}

func (d *Dispatcher) execute(ctx context.Context, session *models.Session, tool string, args json.RawMessage) Result {
	switch tool {
	case ToolIdentifyUser:
		var req IdentifyUserRequest
		if msg, ok := decode(args, &req); !ok {
			return failure(msg)
		}
		return d.identifyUser(ctx, session, req)
	case ToolFetchSlots:
		var req FetchSlotsRequest
		if msg, ok := decode(args, &req); !ok {
			return failure(msg)
		}
		return d.fetchSlots(ctx, req)
	case ToolBookAppointment:
		var req BookAppointmentRequest
		if msg, ok := decode(args, &req); !ok {
			return failure(msg)
		}
		return d.bookAppointment(ctx, session, req)
	case ToolRetrieveAppointments:
		var req RetrieveAppointmentsRequest
		if msg, ok := decode(args, &req); !ok {
			return failure(msg)
		}
		return d.retrieveAppointments(ctx, session, req)
	case ToolCancelAppointment:
		var req CancelAppointmentRequest
		if msg, ok := decode(args, &req); !ok {
			return failure(msg)
		}
		return d.cancelAppointment(ctx, req)
	case ToolModifyAppointment:
		var req ModifyAppointmentRequest
		if msg, ok := decode(args, &req); !ok {
			return failure(msg)
		}
		return d.modifyAppointment(ctx, req)
	case ToolEndConversation:
		return d.endConversation(ctx, session)
	default:
		return failure(fmt.Sprintf("unknown tool: %s", tool))
	}
}

func (d *Dispatcher) identifyUser(ctx context.Context, session *models.Session, req IdentifyUserRequest) Result {
	if req.Phone == "" {
		return failure("Phone number is required. Please ask the user for their phone number first, then call this tool again.")
	}

	user, err := d.ledger.IdentifyUser(ctx, req.Phone)
	if err != nil {
		return failure(errorMessage(err))
	}

	session.Phone = user.Phone
	return success(Result{
		"user": map[string]any{
			"phone": user.Phone,
			"name":  user.Name,
		},
		"message": fmt.Sprintf("User identified: %s", user.Phone),
	})
}

func (d *Dispatcher) fetchSlots(ctx context.Context, req FetchSlotsRequest) Result {
	// Malformed or absent reference dates fall back to now rather than
	// failing; the model often passes loose date strings.
	ref := d.now()
	if req.Date != "" {
		if parsed, err := schedule.ParseDate(req.Date); err == nil {
			ref = parsed
		}
	}

	slots, err := d.ledger.Availability(ctx, ref)
	if err != nil {
		return failure(errorMessage(err))
	}
	return success(Result{
		"slots": slots,
		"count": len(slots),
	})
}

func (d *Dispatcher) bookAppointment(ctx context.Context, session *models.Session, req BookAppointmentRequest) Result {
	if !session.Identified() {
		return failure(identifyFirstMessage)
	}
	if req.Date == "" || req.Time == "" {
		return failure("Date and time are required")
	}

	appt, err := d.ledger.Book(ctx, session.Phone, req.Date, req.Time, req.Notes)
	if err != nil {
		return failure(errorMessage(err))
	}
	return success(Result{
		"appointment": appt,
		"message":     fmt.Sprintf("Appointment booked for %s at %s", appt.Date, appt.Time),
	})
}

func (d *Dispatcher) retrieveAppointments(ctx context.Context, session *models.Session, req RetrieveAppointmentsRequest) Result {
	if !session.Identified() {
		return failure(identifyFirstMessage)
	}

	appointments, err := d.ledger.AppointmentsFor(ctx, session.Phone, req.Status)
	if err != nil {
		return failure(errorMessage(err))
	}
	if appointments == nil {
		appointments = []*models.Appointment{}
	}
	return success(Result{
		"appointments": appointments,
		"count":        len(appointments),
	})
}

func (d *Dispatcher) cancelAppointment(ctx context.Context, req CancelAppointmentRequest) Result {
	if req.AppointmentID == "" {
		return failure("Appointment ID is required")
	}

	appt, err := d.ledger.Cancel(ctx, req.AppointmentID)
	if err != nil {
		return failure(errorMessage(err))
	}
	return success(Result{
		"appointment": appt,
		"message":     "Appointment cancelled successfully",
	})
}

func (d *Dispatcher) modifyAppointment(ctx context.Context, req ModifyAppointmentRequest) Result {
	if req.AppointmentID == "" {
		return failure("Appointment ID is required")
	}

	patch := models.AppointmentPatch{Date: req.Date, Time: req.Time, Notes: req.Notes}
	appt, err := d.ledger.Modify(ctx, req.AppointmentID, patch)
	if err != nil {
		return failure(errorMessage(err))
	}
	return success(Result{
		"appointment": appt,
		"message":     "Appointment modified successfully",
	})
}

func (d *Dispatcher) endConversation(ctx context.Context, session *models.Session) Result {
	if d.summaries != nil && session.Identified() {
		toolCalls, _ := json.Marshal(session.ToolCalls)
		summary := &models.ConversationSummary{
			UserPhone: session.Phone,
			Summary:   json.RawMessage(`{"outcome":"conversation ended"}`),
			ToolCalls: toolCalls,
		}
		if err := d.summaries.Enqueue(ctx, summary); err != nil {
			d.logger.Warn().Err(err).Str("session_id", session.ID).Msg("Failed to enqueue conversation summary")
		}
	}
	return success(Result{
		"message": "Conversation ending. Summary will be generated.",
	})
}

func (d *Dispatcher) loadSession(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := d.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		session = &models.Session{ID: sessionID}
	}
	return session, nil
}

// decode unmarshals tool arguments, tolerating empty bodies.
func decode(args json.RawMessage, into any) (string, bool) {
	if len(args) == 0 {
		return "", true
	}
	if err := json.Unmarshal(args, into); err != nil {
		return "invalid tool arguments: expected a JSON object", false
	}
	return "", true
}

// errorMessage renders a ledger error for the conversation layer. Wording for
// validation and conflict errors is user-facing; store failures stay generic.
func errorMessage(err error) string {
	var validation *service.ValidationError
	var conflict *service.SlotConflictError
	switch {
	case errors.As(err, &validation):
		return validation.Error()
	case errors.As(err, &conflict):
		return conflict.Error()
	case errors.Is(err, database.ErrSlotTaken):
		return "Slot already booked. Please fetch available slots and pick another."
	case errors.Is(err, database.ErrNotFound):
		return "Appointment not found"
	case errors.Is(err, service.ErrStoreUnavailable):
		return "The booking system is temporarily unavailable. Please try again."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The request was cancelled"
	default:
		return "Something went wrong. Please try again."
	}
}
