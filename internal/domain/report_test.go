package domain

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const picholaID = "2b7e7d1c-6f0a-4c2e-9a43-0d1f7f4e5a10"

// --- mock lake finder ---

type mockLakeFinder struct {
	lakes map[string]Lake
	err   error
}

func (m *mockLakeFinder) GetLakeByID(_ context.Context, id string) (Lake, error) {
	if m.err != nil {
		return Lake{}, m.err
	}
	l, ok := m.lakes[id]
	if !ok {
		return Lake{}, ErrNotFound
	}
	return l, nil
}

func finder() *mockLakeFinder {
	return &mockLakeFinder{lakes: map[string]Lake{picholaID: {ID: picholaID, Name: "Lake Pichola"}}}
}

func validRaw() RawReport {
	desc := "Plastic bottles along the ghat"
	return RawReport{
		LakeID:      picholaID,
		ReportType:  ReportPlasticDebris,
		Description: &desc,
		Location:    Coordinates{Latitude: 24.572, Longitude: 73.679},
		ImageURL:    "https://images.example.org/r/1.jpg",
	}
}

// --- tests ---

func TestValidateReport_Valid(t *testing.T) {
	r, err := ValidateReport(context.Background(), validRaw(), finder(), at(42))
	require.NoError(t, err)

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, ReportPending, r.Status)
	assert.Equal(t, at(42), r.SubmittedAt)
	assert.Nil(t, r.ProcessedAt)
	assert.Nil(t, r.ImageAnalysis)
	assert.Equal(t, picholaID, r.LakeID)
}

func TestValidateReport_DescriptionBoundary(t *testing.T) {
	tests := []struct {
		name  string
		desc  string
		valid bool
	}{
		{"1000 chars", strings.Repeat("a", 1000), true},
		{"1001 chars", strings.Repeat("a", 1001), false},
		{"1000 multibyte runes", strings.Repeat("झ", 1000), true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			raw.Description = &tt.desc
			_, err := ValidateReport(context.Background(), raw, finder(), at(0))
			if tt.valid {
				require.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "description", ve.Field)
		})
	}
}

func TestValidateReport_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*RawReport)
		field string
	}{
		{"unknown type", func(r *RawReport) { r.ReportType = "graffiti" }, "reportType"},
		{"latitude", func(r *RawReport) { r.Location.Latitude = 91 }, "location.latitude"},
		{"longitude", func(r *RawReport) { r.Location.Longitude = -180.5 }, "location.longitude"},
		{"empty image", func(r *RawReport) { r.ImageURL = "" }, "imageUrl"},
		{"relative image", func(r *RawReport) { r.ImageURL = "/uploads/1.jpg" }, "imageUrl"},
		{"ftp image", func(r *RawReport) { r.ImageURL = "ftp://host/1.jpg" }, "imageUrl"},
		{"lake not uuid", func(r *RawReport) { r.LakeID = "pichola" }, "lakeId"},
		{"unknown lake", func(r *RawReport) { r.LakeID = "9d7b1a52-0000-4000-8000-000000000000" }, "lakeId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			tt.mut(&raw)
			_, err := ValidateReport(context.Background(), raw, finder(), at(0))
			require.ErrorIs(t, err, ErrValidation)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestValidateReport_UnknownLakeWrapsNotFound(t *testing.T) {
	raw := validRaw()
	raw.LakeID = "9d7b1a52-0000-4000-8000-000000000000"

	_, err := ValidateReport(context.Background(), raw, finder(), at(0))

	require.ErrorIs(t, err, ErrValidation)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestValidateReport_StoreError(t *testing.T) {
	storeErr := errors.New("connection refused")
	_, err := ValidateReport(context.Background(), validRaw(), &mockLakeFinder{err: storeErr}, at(0))

	require.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, ErrValidation)
}

func TestAdvanceReport(t *testing.T) {
	r := CitizenReport{ID: "r-1", Status: ReportPending}

	r, err := AdvanceReport(r, ReportAnalyzing, at(1))
	require.NoError(t, err)
	assert.Nil(t, r.ProcessedAt)

	r, err = AdvanceReport(r, ReportVerified, at(2))
	require.NoError(t, err)
	require.NotNil(t, r.ProcessedAt)
	assert.Equal(t, at(2), *r.ProcessedAt)

	_, err = AdvanceReport(r, ReportRejected, at(3))
	require.ErrorIs(t, err, ErrInvalidStateTransition)

	_, err = AdvanceReport(CitizenReport{Status: ReportAnalyzing}, ReportPending, at(3))
	require.ErrorIs(t, err, ErrInvalidStateTransition)

	_, err = AdvanceReport(CitizenReport{Status: ReportPending}, ReportStatus("archived"), at(3))
	require.ErrorIs(t, err, ErrValidation)
}

func TestAdvanceReport_PendingToRejected(t *testing.T) {
	r, err := AdvanceReport(CitizenReport{Status: ReportPending}, ReportRejected, at(4))
	require.NoError(t, err)
	assert.Equal(t, ReportRejected, r.Status)
	assert.NotNil(t, r.ProcessedAt)
}
