package reservations

import "testing"

func TestStatusValues(t *testing.T) {
	// Los valores del estado son contrato de API, no pueden cambiar.
	cases := map[Status]string{
		StatusPending:   "pendiente",
		StatusConfirmed: "confirmado",
		StatusPaid:      "pagado",
		StatusCancelled: "cancelado",
		StatusRefunded:  "reembolsado",
		StatusCompleted: "entregado",
	}
	for status, want := range cases {
		if string(status) != want {
			t.Errorf("Expected status value %s, got %s", want, status)
		}
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusPaid},
		{StatusPending, StatusCancelled},
		{StatusConfirmed, StatusPaid},
		{StatusConfirmed, StatusCancelled},
		{StatusConfirmed, StatusCompleted},
		{StatusPaid, StatusRefunded},
		{StatusPaid, StatusCompleted},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransition(tc.to) {
			t.Errorf("Expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	forbidden := []struct{ from, to Status }{
		{StatusPaid, StatusCancelled},
		{StatusCancelled, StatusConfirmed},
		{StatusCancelled, StatusCancelled},
		{StatusRefunded, StatusPaid},
		{StatusCompleted, StatusCancelled},
		{StatusCompleted, StatusRefunded},
		{StatusConfirmed, StatusRefunded},
	}
	for _, tc := range forbidden {
		if tc.from.CanTransition(tc.to) {
			t.Errorf("Expected %s -> %s to be forbidden", tc.from, tc.to)
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	terminals := []Status{StatusCancelled, StatusRefunded, StatusCompleted}
	all := []Status{StatusPending, StatusConfirmed, StatusPaid, StatusCancelled, StatusRefunded, StatusCompleted}

	for _, terminal := range terminals {
		for _, to := range all {
			if terminal.CanTransition(to) {
				t.Errorf("Expected terminal state %s to allow no transitions, but %s -> %s is allowed", terminal, terminal, to)
			}
		}
	}
}

func TestConsumesCapacity(t *testing.T) {
	holding := []Status{StatusPending, StatusConfirmed, StatusPaid, StatusCompleted}
	for _, s := range holding {
		if !s.ConsumesCapacity() {
			t.Errorf("Expected %s to hold capacity", s)
		}
	}

	released := []Status{StatusCancelled, StatusRefunded}
	for _, s := range released {
		if s.ConsumesCapacity() {
			t.Errorf("Expected %s to release capacity", s)
		}
	}
}

func TestCancellable(t *testing.T) {
	if !StatusPending.Cancellable() {
		t.Error("Expected pendiente to be cancellable")
	}
	if !StatusConfirmed.Cancellable() {
		t.Error("Expected confirmado to be cancellable")
	}
	// Lo pagado se revierte vía reembolso
	for _, s := range []Status{StatusPaid, StatusCancelled, StatusRefunded, StatusCompleted} {
		if s.Cancellable() {
			t.Errorf("Expected %s to not be cancellable", s)
		}
	}
}
