package wizard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"leadterm/internal/currency"
	"leadterm/internal/lead"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingSubmitter struct {
	mu    sync.Mutex
	calls []lead.Fields
	err   error
}

func (r *recordingSubmitter) Submit(_ context.Context, f lead.Fields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, f)
	return r.err
}

func fillContact(c *Controller) {
	c.SetField(FieldName, "Maria")
	c.SetField(FieldEmail, "maria@example.com")
	c.SetField(FieldPhone, "11999999999")
}

// completeWizard walks every step with valid input and stops on the last one.
func completeWizard(t *testing.T, c *Controller) {
	t.Helper()
	fillContact(c)
	require.True(t, c.Advance())
	c.SetField(FieldPropertyType, "apartamento")
	require.True(t, c.Advance())
	c.SetField(FieldEstimatedValue, "300000")
	c.SelectAddress(lead.Address{Display: "Rua Augusta, 100, São Paulo", Coordinates: lead.Coordinates{Lat: -23.55, Lng: -46.65}})
	require.True(t, c.Advance())
	c.SetField(FieldNightlyRate, "250")
	require.True(t, c.Advance())
	c.TogglePlatform(lead.PlatformAirbnb)
	require.True(t, c.Advance())
	c.SetField(FieldFurnishing, "completo")
	require.Equal(t, StepCount, c.Step())
}

func TestNewControllerStartsFresh(t *testing.T) {
	c := New(&recordingSubmitter{}, DefaultRules())
	assert.Equal(t, StepContact, c.Step())
	assert.Equal(t, StatusIdle, c.Status())
	assert.Equal(t, lead.Fields{}, c.Fields())
	assert.NotEmpty(t, c.ID())
	assert.NotEqual(t, c.ID(), New(nil, DefaultRules()).ID())
}

func TestAdvanceIsNoopWhenStepInvalid(t *testing.T) {
	c := New(&recordingSubmitter{}, DefaultRules())
	for step := StepContact; step <= StepCount; step++ {
		require.Equal(t, step, c.Step())
		require.False(t, c.ValidateStep(step))
		assert.False(t, c.Advance(), "step %d", step)
		assert.Equal(t, step, c.Step(), "step %d", step)
		assert.False(t, c.CanAdvance())

		// make the step valid so the loop can move on
		switch step {
		case StepContact:
			fillContact(c)
		case StepPropertyType:
			c.SetField(FieldPropertyType, string(lead.PropertyHouse))
		case StepProperty:
			c.SetField(FieldEstimatedValue, "500000")
			c.SetField(FieldAddress, "Rua das Flores, Curitiba")
		case StepNightlyRate:
			c.SetField(FieldNightlyRate, "300")
		case StepPlatforms:
			c.TogglePlatform(lead.PlatformNone)
		case StepFurnishing:
			c.SetField(FieldFurnishing, string(lead.FurnishingEmpty))
		}
		require.True(t, c.ValidateStep(step))
		if step < StepCount {
			require.True(t, c.Advance())
		}
	}
	assert.False(t, c.Advance(), "capped at the last step")
	assert.Equal(t, StepCount, c.Step())
}

func TestRetreatFlooredAtFirstStep(t *testing.T) {
	c := New(&recordingSubmitter{}, DefaultRules())
	assert.False(t, c.Retreat())
	assert.Equal(t, StepContact, c.Step())

	fillContact(c)
	require.True(t, c.Advance())
	c.SetField(FieldName, "")
	assert.True(t, c.Retreat(), "retreat does not validate")
	assert.Equal(t, StepContact, c.Step())
}

func TestContactStepEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"maria@example.com", true},
		{"maria.souza+temporada@mail.example.com.br", true},
		{"  maria@example.com ", true},
		{"maria.example.com", false},
		{"maria@", false},
		{"maria@example", false},
		{"@example.com", false},
		{"maria @example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			c := New(nil, DefaultRules())
			c.SetField(FieldName, "Maria")
			c.SetField(FieldPhone, "11999999999")
			c.SetField(FieldEmail, tt.email)
			assert.Equal(t, tt.valid, c.ValidateStep(StepContact))
		})
	}
}

func TestContactStepPhone(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		valid bool
	}{
		{"missing", "", false},
		{"too short", "99999-9999", false},
		{"landline with area code", "(11) 3333-4444", true},
		{"mobile", "11999999999", true},
		{"formatted mobile", "+55 (11) 99999-9999", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(nil, DefaultRules())
			c.SetField(FieldName, "Maria")
			c.SetField(FieldEmail, "maria@example.com")
			c.SetField(FieldPhone, tt.phone)
			assert.Equal(t, tt.valid, c.ValidateStep(StepContact))
		})
	}
}

func TestContactStepRequiresName(t *testing.T) {
	c := New(nil, DefaultRules())
	c.SetField(FieldName, "   ")
	c.SetField(FieldEmail, "maria@example.com")
	c.SetField(FieldPhone, "11999999999")
	assert.False(t, c.ValidateStep(StepContact))
	assert.Equal(t, []string{"informe seu nome"}, c.Problems())
}

func TestPhoneMinDigitsIsConfigurable(t *testing.T) {
	rules := DefaultRules()
	rules.PhoneMinDigits = 11
	c := New(nil, rules)
	fillContact(c)
	c.SetField(FieldPhone, "1133334444")
	assert.False(t, c.ValidateStep(StepContact))
}

func TestValidateStepOutOfRange(t *testing.T) {
	c := New(nil, DefaultRules())
	assert.False(t, c.ValidateStep(0))
	assert.False(t, c.ValidateStep(StepCount+1))
}

func TestPlatformExclusivity(t *testing.T) {
	c := New(nil, DefaultRules())
	c.TogglePlatform(lead.PlatformAirbnb)
	c.TogglePlatform(lead.PlatformNone)
	assert.Equal(t, []lead.Platform{lead.PlatformNone}, c.Fields().Platforms)

	c = New(nil, DefaultRules())
	c.TogglePlatform(lead.PlatformNone)
	c.TogglePlatform(lead.PlatformAirbnb)
	assert.Equal(t, []lead.Platform{lead.PlatformAirbnb}, c.Fields().Platforms)
}

func TestCurrencyFields(t *testing.T) {
	c := New(nil, DefaultRules())
	c.SetField(FieldNightlyRate, "250")
	assert.Equal(t, 250.0, c.Fields().NightlyRate)
	c.SetField(FieldEstimatedValue, "R$ 300.000")
	assert.Equal(t, 300000.0, c.Fields().EstimatedValue)

	rules := DefaultRules()
	rules.RateUnit = currency.Cents
	c = New(nil, rules)
	c.SetField(FieldNightlyRate, "250")
	assert.InDelta(t, 2.50, c.Fields().NightlyRate, 1e-9)
}

func TestCurrencyFieldKeepsValueOnOverflow(t *testing.T) {
	c := New(nil, DefaultRules())
	c.SetField(FieldEstimatedValue, "R$ 300.000")
	c.SetField(FieldEstimatedValue, "12345678901234567890")
	assert.Equal(t, 300000.0, c.Fields().EstimatedValue)

	c.SetField(FieldNightlyRate, "250")
	c.SetField(FieldNightlyRate, "9999999999999999")
	assert.Equal(t, 250.0, c.Fields().NightlyRate)
}

func TestSetFieldIgnoresUnknownName(t *testing.T) {
	c := New(nil, DefaultRules())
	c.SetField(Field("favoriteColor"), "blue")
	assert.Equal(t, lead.Fields{}, c.Fields())
}

func TestSubmitOnlyFromLastStep(t *testing.T) {
	sub := &recordingSubmitter{}
	c := New(sub, DefaultRules())
	fillContact(c)
	assert.ErrorIs(t, c.Submit(context.Background()), ErrNotLastStep)
	assert.Equal(t, StatusIdle, c.Status())
	assert.Empty(t, sub.calls)
}

func TestSubmitRequiresEveryStep(t *testing.T) {
	sub := &recordingSubmitter{}
	c := New(sub, DefaultRules())
	completeWizard(t, c)
	c.SetField(FieldEmail, "broken")

	err := c.Submit(context.Background())
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.False(t, c.CanSubmit())
	assert.Empty(t, sub.calls)
}

func TestEndToEndSuccess(t *testing.T) {
	sub := &recordingSubmitter{}
	c := New(sub, DefaultRules())
	completeWizard(t, c)
	require.True(t, c.CanSubmit())

	require.NoError(t, c.Submit(context.Background()))
	assert.Equal(t, StatusSuccess, c.Status())
	require.Len(t, sub.calls, 1)

	got := sub.calls[0]
	assert.Equal(t, "Maria", got.Name)
	assert.Equal(t, lead.PropertyApartment, got.PropertyType)
	assert.Equal(t, 300000.0, got.EstimatedValue)
	assert.Equal(t, 250.0, got.NightlyRate)
	assert.Equal(t, []lead.Platform{lead.PlatformAirbnb}, got.Platforms)
	assert.Equal(t, lead.FurnishingFull, got.Furnishing)
	assert.InDelta(t, -23.55, got.Address.Coordinates.Lat, 1e-9)

	assert.ErrorIs(t, c.Submit(context.Background()), ErrAlreadySubmitted)
	assert.Len(t, sub.calls, 1, "success is terminal")
}

func TestEndToEndMissingPhone(t *testing.T) {
	c := New(&recordingSubmitter{}, DefaultRules())
	c.SetField(FieldName, "Maria")
	c.SetField(FieldEmail, "maria@example.com")
	assert.False(t, c.ValidateStep(StepContact))
	assert.False(t, c.CanAdvance())
	assert.False(t, c.Advance())
	assert.Equal(t, StepContact, c.Step())
}

func TestSubmitErrorAllowsRetry(t *testing.T) {
	boom := errors.New("insert failed: duplicate key")
	sub := &recordingSubmitter{err: boom}
	c := New(sub, DefaultRules())
	completeWizard(t, c)
	before := c.Fields()

	err := c.Submit(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StatusError, c.Status())
	assert.Equal(t, boom, c.Err())
	assert.Equal(t, StepCount, c.Step(), "stays on the last step")
	assert.Equal(t, before, c.Fields(), "fields are preserved")
	assert.True(t, c.CanSubmit())

	sub.mu.Lock()
	sub.err = nil
	sub.mu.Unlock()
	require.NoError(t, c.Submit(context.Background()))
	assert.Equal(t, StatusSuccess, c.Status())
	assert.NoError(t, c.Err())
	assert.Equal(t, 2, c.Attempts())
}

func TestSubmitWithoutSubmitterFails(t *testing.T) {
	c := New(nil, DefaultRules())
	completeWizard(t, c)
	assert.Error(t, c.Submit(context.Background()))
	assert.Equal(t, StatusError, c.Status())
}

func TestConcurrentSubmitCallsInsertOnce(t *testing.T) {
	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	c := New(SubmitterFunc(func(ctx context.Context, f lead.Fields) error {
		calls.Add(1)
		close(entered)
		<-release
		return nil
	}), DefaultRules())
	completeWizard(t, c)

	first := make(chan error, 1)
	go func() { first <- c.Submit(context.Background()) }()
	<-entered
	assert.Equal(t, StatusSubmitting, c.Status())
	assert.False(t, c.CanSubmit())

	const extra = 8
	var wg sync.WaitGroup
	errs := make(chan error, extra)
	for i := 0; i < extra; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.Submit(context.Background())
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.ErrorIs(t, err, ErrSubmitInFlight)
	}

	close(release)
	require.NoError(t, <-first)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, StatusSuccess, c.Status())
}

func TestStepsMetadata(t *testing.T) {
	all := Steps()
	require.Len(t, all, StepCount)
	for i, s := range all {
		assert.Equal(t, i+1, s.Index)
		assert.NotEmpty(t, s.Title)
	}
	_, ok := Info(0)
	assert.False(t, ok)
	info, ok := Info(StepPlatforms)
	require.True(t, ok)
	assert.Equal(t, "Plataformas", info.Title)
}
