package contact

import (
	"errors"
	"testing"
)

func validRequest() Request {
	return Request{
		Name:    "Ada",
		Email:   "ada@example.com",
		Subject: "Hi",
		Message: "Hello there",
	}
}

func TestValidate_Success(t *testing.T) {
	t.Parallel()

	sub, err := Validate(validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Submission{Name: "Ada", Email: "ada@example.com", Subject: "Hi", Message: "Hello there"}
	if sub != want {
		t.Errorf("Validate(): got %+v, want %+v", sub, want)
	}
}

func TestValidate_MissingField(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Request)
		field  string
	}{
		{"name", func(r *Request) { r.Name = "" }, "name"},
		{"email", func(r *Request) { r.Email = "" }, "email"},
		{"subject", func(r *Request) { r.Subject = "" }, "subject"},
		{"message", func(r *Request) { r.Message = "" }, "message"},
		{"first missing wins", func(r *Request) { r.Subject = ""; r.Message = "" }, "subject"},
		{"missing beats invalid email", func(r *Request) { r.Email = "bad"; r.Name = "" }, "name"},
		{"all missing", func(r *Request) { *r = Request{} }, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := validRequest()
			tt.modify(&req)

			_, err := Validate(req)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if ve.Kind != KindMissingField {
				t.Errorf("Kind: got %q, want %q", ve.Kind, KindMissingField)
			}
			if ve.Field != tt.field {
				t.Errorf("Field: got %q, want %q", ve.Field, tt.field)
			}
			if ve.Message() != MessageMissingField {
				t.Errorf("Message(): got %q, want %q", ve.Message(), MessageMissingField)
			}
		})
	}
}

func TestValidate_InvalidEmail(t *testing.T) {
	t.Parallel()

	req := validRequest()
	req.Email = "not-an-email"

	_, err := Validate(req)
	if !IsKind(err, KindInvalidEmail) {
		t.Fatalf("Validate(): got %v, want invalid email", err)
	}
	var ve *ValidationError
	errors.As(err, &ve)
	if ve.Message() != MessageInvalidEmail {
		t.Errorf("Message(): got %q, want %q", ve.Message(), MessageInvalidEmail)
	}
}

func TestValidate_NoTrimming(t *testing.T) {
	t.Parallel()

	req := validRequest()
	req.Name = "   "
	req.Subject = "  Hi  "

	sub, err := Validate(req)
	if err != nil {
		t.Fatalf("whitespace-only fields count as present: %v", err)
	}
	if sub.Subject != "  Hi  " {
		t.Errorf("Subject: got %q, want %q", sub.Subject, "  Hi  ")
	}

	req.Email = " ada@example.com"
	if _, err := Validate(req); !IsKind(err, KindInvalidEmail) {
		t.Errorf("leading space in email: got %v, want invalid email", err)
	}
}

func TestValidEmail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"ada@example.com", true},
		{"a.b+c@sub.example.co.uk", true},
		{"ADA@EXAMPLE.COM", true},
		{"a@b.c", true},
		{"a@b@c.com", false},
		{"ada@example", false},
		{"@example.com", false},
		{"ada@.com", false},
		{"ada example@x.com", false},
		{"ada@exa mple.com", false},
		{"ada@example.", false},
		{"ada\t@example.com", false},
		{"ada\v@example.com", false},
		{"ada\u00a0@example.com", false},
		{"ada\u2028@example.com", false},
		{"ada\ufeff@example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := ValidEmail(tt.in); got != tt.want {
				t.Errorf("ValidEmail(%q): got %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsKind_OtherErrors(t *testing.T) {
	t.Parallel()

	if IsKind(errors.New("boom"), KindMissingField) {
		t.Error("IsKind should be false for unrelated errors")
	}
	if IsKind(nil, KindMissingField) {
		t.Error("IsKind should be false for nil")
	}
}
