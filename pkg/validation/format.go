// Package validation provides common validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/bigmac-dashboard/pkg/constants"
)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	if format != constants.OutputFormatPretty && format != constants.OutputFormatCSV {
		return fmt.Errorf("expected output format of %s or %s, got %s",
			constants.OutputFormatPretty, constants.OutputFormatCSV, format)
	}
	return nil
}

// ValidateRateUnit checks the rate unit policy name.
func ValidateRateUnit(unit string) error {
	switch unit {
	case constants.RateUnitPerOne, constants.RateUnitPerHundred, constants.RateUnitAutoDetect:
		return nil
	}
	return fmt.Errorf("expected rate unit of %s, %s or %s, got %q",
		constants.RateUnitPerOne, constants.RateUnitPerHundred, constants.RateUnitAutoDetect, unit)
}

// ValidatePercentile checks that p lies strictly between 0 and 100.
func ValidatePercentile(p float64) error {
	if !(p > 0 && p < 100) {
		return fmt.Errorf("percentile must be in (0, 100), got %v", p)
	}
	return nil
}

// ValidateProvider checks the narrative provider name.
func ValidateProvider(provider string) error {
	switch provider {
	case constants.ProviderDeepSeek, constants.ProviderMock, constants.ProviderAuto:
		return nil
	}
	return fmt.Errorf("expected narrative provider of %s, %s or %s, got %q",
		constants.ProviderDeepSeek, constants.ProviderMock, constants.ProviderAuto, provider)
}
