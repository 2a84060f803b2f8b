package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyValidationErrors_Sequence(t *testing.T) {
	report := ClassifyValidationErrors([]interface{}{
		"Missing required columns: GPA, GRE",
		"Extra columns not allowed: Nickname",
		"Column 'Age' contains invalid values",
		"Column 'GPA' has empty values",
		"Row 14 could not be parsed",
	})

	assert.Equal(t, []string{"Missing required columns: GPA, GRE"}, report.MissingColumns)
	assert.Equal(t, []string{"Extra columns not allowed: Nickname"}, report.ExtraColumns)
	assert.Equal(t, []string{"Column 'Age' contains invalid values"}, report.InvalidValues)
	assert.Equal(t, []string{"Column 'GPA' has empty values"}, report.EmptyValues)
	assert.Equal(t, []string{"Row 14 could not be parsed"}, report.Other)
	assert.False(t, report.Empty())
}

func TestClassifyValidationErrors_BracketedListString(t *testing.T) {
	payload := "CSV validation failed: ['Missing required columns: GPA', 'Column 'Status' contains invalid values', 'Column 'TOEFL' has missing values']"

	report := ClassifyValidationErrors(payload)

	require.Len(t, report.MissingColumns, 1)
	assert.Equal(t, "Missing required columns: GPA", report.MissingColumns[0])
	require.Len(t, report.InvalidValues, 1)
	require.Len(t, report.EmptyValues, 1)
	assert.Empty(t, report.Other)
}

func TestClassifyValidationErrors_QuotedCommaStaysIntact(t *testing.T) {
	// A comma inside quotes must not split the message.
	payload := "CSV validation failed: ['Missing required columns: GPA, GRE', 'Row 2 bad']"

	report := ClassifyValidationErrors(payload)

	require.Len(t, report.MissingColumns, 1)
	assert.Equal(t, "Missing required columns: GPA, GRE", report.MissingColumns[0])
	assert.Equal(t, []string{"Row 2 bad"}, report.Other)
}

func TestClassifyValidationErrors_PlainString(t *testing.T) {
	report := ClassifyValidationErrors("upload size exceeded\n\nMissing required columns: GPA")

	assert.Equal(t, []string{"upload size exceeded"}, report.Other)
	assert.Equal(t, []string{"Missing required columns: GPA"}, report.MissingColumns)
}

func TestClassifyValidationErrors_DetailsObject(t *testing.T) {
	report := ClassifyValidationErrors(map[string]interface{}{
		"details": []interface{}{"Extra columns not allowed: Foo", "something odd"},
	})

	assert.Equal(t, []string{"Extra columns not allowed: Foo"}, report.ExtraColumns)
	assert.Equal(t, []string{"something odd"}, report.Other)
}

func TestClassifyValidationErrors_OpaquePayload(t *testing.T) {
	report := ClassifyValidationErrors(500)

	assert.Equal(t, []string{"500"}, report.Other)
}

func TestClassifyValidationErrors_FirstCategoryWins(t *testing.T) {
	// A message matching several markers lands in exactly one bucket.
	msg := "Missing required columns: GPA; Extra columns not allowed: X"
	report := ClassifyValidationErrors([]string{msg})

	assert.Equal(t, []string{msg}, report.MissingColumns)
	assert.Empty(t, report.ExtraColumns)
}

func TestValidationErrorReport_Empty(t *testing.T) {
	assert.True(t, (&ValidationErrorReport{}).Empty())
}
