package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
)

type setupTaskRequest struct {
	Partner         domain.PartnerID `json:"partner"`
	TimelockEndTime time.Time        `json:"timelock_end_time"`
	Deadline        time.Time        `json:"deadline"`
	Amount          uint64           `json:"amount"`
	BTCAddress      string           `json:"btc_address"`
}

type receiveFundsRequest struct {
	Amount        uint64          `json:"amount"`
	TxHash        domain.TxHash   `json:"tx_hash"`
	TxOut         uint32          `json:"tx_out"`
	WitnessScript domain.HexBytes `json:"witness_script"`
}

// TaskView is the wire form of a task.
type TaskView struct {
	ID              uint64           `json:"id"`
	Partner         domain.PartnerID `json:"partner"`
	State           string           `json:"state"`
	TimelockEndTime time.Time        `json:"timelock_end_time"`
	Deadline        time.Time        `json:"deadline"`
	Amount          uint64           `json:"amount"`
	BTCAddress      string           `json:"btc_address"`
	TxHash          *domain.TxHash   `json:"tx_hash,omitempty"`
	TxOut           *uint32          `json:"tx_out,omitempty"`
	WitnessScript   domain.HexBytes  `json:"witness_script,omitempty"`
}

// NewTaskView converts a task; deposit fields are omitted until fulfillment.
func NewTaskView(t domain.Task) TaskView {
	v := TaskView{
		ID:              t.ID,
		Partner:         t.Partner,
		State:           t.State.String(),
		TimelockEndTime: t.TimelockEndTime,
		Deadline:        t.Deadline,
		Amount:          t.Amount,
		BTCAddress:      t.BTCAddress,
		WitnessScript:   t.WitnessScript,
	}
	if t.State >= domain.TaskStateFulfilled {
		v.TxHash = &t.TxHash
		v.TxOut = &t.TxOut
	}
	return v
}

// SetupTask handles POST /tasks.
func (s *Server) SetupTask(w http.ResponseWriter, r *http.Request) {
	var body setupTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.badRequest(w, r, err)
		return
	}
	id, err := s.Engine.SetupTask(r.Context(), caller(r), body.Partner, body.TimelockEndTime, body.Deadline, body.Amount, body.BTCAddress)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.write(w, http.StatusCreated, map[string]uint64{"task_id": id})
}

// GetTask handles GET /tasks/{id}.
func (s *Server) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	task, err := s.Engine.GetTask(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.write(w, http.StatusOK, NewTaskView(task))
}

// ReceiveFunds handles POST /tasks/{id}/funds.
func (s *Server) ReceiveFunds(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	var body receiveFundsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.badRequest(w, r, err)
		return
	}
	err = s.Engine.ReceiveFunds(r.Context(), caller(r), body.Amount, id, body.TxHash, body.TxOut, body.WitnessScript)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.taskAfter(w, r, id)
}

// Burn handles POST /tasks/{id}/burn.
func (s *Server) Burn(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	if err := s.Engine.Burn(r.Context(), caller(r), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.taskAfter(w, r, id)
}

// ForceBurn handles POST /tasks/{id}/force-burn.
func (s *Server) ForceBurn(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(r, "id")
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	if err := s.Engine.ForceBurn(r.Context(), caller(r), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.taskAfter(w, r, id)
}

func (s *Server) taskAfter(w http.ResponseWriter, r *http.Request, id uint64) {
	task, err := s.Engine.GetTask(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.write(w, http.StatusOK, NewTaskView(task))
}
