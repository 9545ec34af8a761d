package validator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aniiishetty/event/internal/dto"
	"github.com/aniiishetty/event/internal/model"
)

func validForm() dto.RegisterForm {
	return dto.RegisterForm{
		Name:        "A. Rao",
		Designation: string(model.DesignationPrincipal),
		CollegeID:   "7",
		Phone:       "555-0100",
		Email:       "a@x.edu",
		Reason:      model.ReasonResearchPaper,
	}
}

func TestValidateRegisterForm(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, Validate(ctx, validForm()))

	t.Run("missing name", func(t *testing.T) {
		f := validForm()
		f.Name = ""
		err := Validate(ctx, f)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrFieldRequired)
	})

	t.Run("bad email", func(t *testing.T) {
		f := validForm()
		f.Email = "not-an-email"
		err := Validate(ctx, f)
		require.Error(t, err)
		assert.Contains(t, err.Error(), ErrInvalidFormat)
	})

	t.Run("unknown designation", func(t *testing.T) {
		f := validForm()
		f.Designation = "Dean"
		err := Validate(ctx, f)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "designation")
	})

	t.Run("unknown reason", func(t *testing.T) {
		f := validForm()
		f.Reason = "To network"
		err := Validate(ctx, f)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reason")
	})

	t.Run("missing phone", func(t *testing.T) {
		f := validForm()
		f.Phone = ""
		require.Error(t, Validate(ctx, f))
	})
}
