package tutorial

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Query parameter names of a step request.
const (
	ParamStep               = "step"
	ParamMode               = "mode"
	ParamConversationID     = "conversationId"
	ParamPreviousResponseID = "previousResponseId"
	ParamCurrentCode        = "currentCode"
	ParamProblem            = "problem"
)

// RequestParams are the parameters of one step request. Every field is
// always present on the wire; absent values are sent as "".
type RequestParams struct {
	Step               string
	Mode               Mode
	ConversationID     string
	PreviousResponseID string
	CurrentCode        string
	Problem            string
}

// BuildRequest composes the parameters for fetching stepIndex in the given
// mode. It is a pure function of its inputs.
func BuildRequest(stepIndex int, mode Mode, state State, currentCode string) RequestParams {
	return RequestParams{
		Step:               strconv.Itoa(stepIndex),
		Mode:               mode,
		ConversationID:     state.ConversationID,
		PreviousResponseID: state.LatestResponseID,
		CurrentCode:        currentCode,
		Problem:            state.Problem,
	}
}

// Values encodes the parameters as a query string.
func (p RequestParams) Values() url.Values {
	v := url.Values{}
	v.Set(ParamStep, p.Step)
	v.Set(ParamMode, string(p.Mode))
	v.Set(ParamConversationID, p.ConversationID)
	v.Set(ParamPreviousResponseID, p.PreviousResponseID)
	v.Set(ParamCurrentCode, p.CurrentCode)
	v.Set(ParamProblem, p.Problem)
	return v
}

// StepNumber returns the step as an integer.
func (p RequestParams) StepNumber() (int, error) {
	n, err := strconv.Atoi(p.Step)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStep, p.Step)
	}
	return n, nil
}

// ParseRequestParams decodes and validates a step request query.
func ParseRequestParams(q url.Values) (RequestParams, error) {
	p := RequestParams{
		Step:               strings.TrimSpace(q.Get(ParamStep)),
		Mode:               Mode(q.Get(ParamMode)),
		ConversationID:     q.Get(ParamConversationID),
		PreviousResponseID: q.Get(ParamPreviousResponseID),
		CurrentCode:        q.Get(ParamCurrentCode),
		Problem:            q.Get(ParamProblem),
	}
	if p.Mode == "" {
		p.Mode = ModeGenerate
	}
	if !p.Mode.Valid() {
		return RequestParams{}, fmt.Errorf("%w: %q", ErrInvalidMode, p.Mode)
	}
	if _, err := p.StepNumber(); err != nil {
		return RequestParams{}, err
	}
	if strings.TrimSpace(p.Problem) == "" {
		return RequestParams{}, ErrEmptyProblem
	}
	return p, nil
}
