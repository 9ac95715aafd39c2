package entity

import "testing"

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("PAYMENT_VERIFIED")
	if err != nil {
		t.Fatalf("ParseStatus failed: %v", err)
	}
	if st != StatusPaymentVerified {
		t.Fatalf("Expected PAYMENT_VERIFIED, got %s", st)
	}

	if _, err := ParseStatus("SHIPPED"); err == nil {
		t.Fatal("Expected error for unknown status")
	}
	if _, err := ParseStatus(""); err == nil {
		t.Fatal("Expected error for empty status")
	}
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{StatusCreated, StatusConfirmed, true},
		{StatusCreated, StatusPaymentVerified, true},
		{StatusCreated, StatusCancelled, true},
		{StatusConfirmed, StatusPaymentVerified, true},
		{StatusPaymentVerified, StatusPacked, true},
		{StatusPacked, StatusDispatched, true},
		{StatusPacked, StatusCancelled, true},
		{StatusDispatched, StatusInTransit, true},
		{StatusInTransit, StatusDelivered, true},

		// 不允许跳级或回退
		{StatusCreated, StatusPacked, false},
		{StatusCreated, StatusDispatched, false},
		{StatusPaymentVerified, StatusDispatched, false},
		{StatusPacked, StatusCreated, false},
		{StatusDispatched, StatusPacked, false},

		// 发货后不可取消
		{StatusDispatched, StatusCancelled, false},
		{StatusInTransit, StatusCancelled, false},

		// 终态不再迁移
		{StatusDelivered, StatusInTransit, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusCreated, false},
		{StatusCancelled, StatusConfirmed, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestReachedStage(t *testing.T) {
	if !StatusPacked.ReachedStage(StatusPaymentVerified) {
		t.Fatal("PACKED should have reached PAYMENT_VERIFIED")
	}
	if !StatusPacked.ReachedStage(StatusPacked) {
		t.Fatal("PACKED should have reached PACKED")
	}
	if StatusConfirmed.ReachedStage(StatusPacked) {
		t.Fatal("CONFIRMED should not have reached PACKED")
	}
	if StatusCancelled.ReachedStage(StatusCreated) {
		t.Fatal("CANCELLED is outside the forward sequence")
	}
}

func TestIsTerminal(t *testing.T) {
	if !StatusDelivered.IsTerminal() {
		t.Fatal("DELIVERED should be terminal")
	}
	if !StatusCancelled.IsTerminal() {
		t.Fatal("CANCELLED should be terminal")
	}
	if StatusPacked.IsTerminal() {
		t.Fatal("PACKED should not be terminal")
	}
	if StatusCreated.IsTerminal() {
		t.Fatal("CREATED should not be terminal")
	}
}
