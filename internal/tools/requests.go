package tools

// Tool names exposed to the conversation layer.
const (
	ToolIdentifyUser         = "identify_user"
	ToolFetchSlots           = "fetch_slots"
	ToolBookAppointment      = "book_appointment"
	ToolRetrieveAppointments = "retrieve_appointments"
	ToolCancelAppointment    = "cancel_appointment"
	ToolModifyAppointment    = "modify_appointment"
	ToolEndConversation      = "end_conversation"
)

// One request type per tool. The language model hands over loosely shaped
// argument maps; decoding into these at the boundary keeps dict-shaped data
// out of the ledger.

type IdentifyUserRequest struct {
	Phone string `json:"phone"`
}

type FetchSlotsRequest struct {
	Date string `json:"date,omitempty"`
}

type BookAppointmentRequest struct {
	Date  string `json:"date"`
	Time  string `json:"time"`
	Notes string `json:"notes,omitempty"`
}

type RetrieveAppointmentsRequest struct {
	Status string `json:"status,omitempty"`
}

type CancelAppointmentRequest struct {
	AppointmentID string `json:"appointment_id"`
}

type ModifyAppointmentRequest struct {
	AppointmentID string  `json:"appointment_id"`
	Date          *string `json:"date,omitempty"`
	Time          *string `json:"time,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

type EndConversationRequest struct{}

// Result is the JSON-serializable shape returned across the tool boundary:
// either {"success": true, ...} or {"error": message}. Errors never cross as
// Go values.
type Result map[string]any

func success(fields Result) Result {
	out := Result{"success": true}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func failure(message string) Result {
	return Result{"error": message}
}
