package validations

import (
	"context"
	"fmt"

	domainEmergency "github.com/AzielCF/aegisx/domains/emergency"
	pkgError "github.com/AzielCF/aegisx/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func ValidateActivateEmergency(ctx context.Context, request domainEmergency.ActivateRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.SchoolID, validation.Required),
		validation.Field(&request.ModeType, validation.Required),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	if !request.ModeType.Valid() {
		return pkgError.ValidationError(fmt.Sprintf("mode_type: unknown value %q", request.ModeType))
	}

	// Switching into any emergency mode leaves an audit trail; a reason is
	// mandatory for everything except the return to normal.
	if request.ModeType != domainEmergency.ModeNormal && request.Reason == "" {
		return pkgError.ValidationError("reason: cannot be blank when activating a non-normal mode")
	}

	if request.AutoDeactivateMinutes < 0 {
		return pkgError.ValidationError("auto_deactivate_minutes: must be non-negative")
	}

	return nil
}
