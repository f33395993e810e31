package domain

import "testing"

func TestWithdrawalTerminalStates(t *testing.T) {
	tests := []struct {
		status    string
		succeeded bool
		failed    bool
	}{
		{"ok", true, false},
		{"complete", true, false},
		{"completed", true, false},
		{"success", true, false},
		{"failed", false, true},
		{"canceled", false, true},
		{"cancelled", false, true},
		{"pending", false, false},
		{"processing", false, false},
		{"", false, false},
		// Status matching is exact; venues report lowercase.
		{"OK", false, false},
		{"Completed", false, false},
	}

	for _, tt := range tests {
		t.Run("status_"+tt.status, func(t *testing.T) {
			w := &Withdrawal{Status: tt.status}
			if got := w.Succeeded(); got != tt.succeeded {
				t.Errorf("Succeeded() with status %q = %v, want %v", tt.status, got, tt.succeeded)
			}
			if got := w.Failed(); got != tt.failed {
				t.Errorf("Failed() with status %q = %v, want %v", tt.status, got, tt.failed)
			}
		})
	}
}
