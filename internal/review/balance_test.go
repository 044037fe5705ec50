package review

import (
	"testing"

	"github.com/mdwhitten/tabulate/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func balanceReceipt(total *float64, tax float64, items ...model.LineItem) *model.Receipt {
	return &model.Receipt{
		ID:          1,
		StoreName:   "Costco",
		ReceiptDate: "2025-06-15",
		Status:      model.StatusPending,
		Total:       total,
		Tax:         tax,
		Items:       items,
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name        string
		total       *float64
		tax         float64
		items       []model.LineItem
		locals      []model.LocalItem
		wantVerdict Verdict
		wantDiff    float64
	}{
		{
			name:        "within tolerance is balanced",
			total:       ptrFloat(100.01),
			items:       []model.LineItem{{ID: 10, Price: 100.00, Quantity: 1}},
			wantVerdict: VerdictBalanced,
		},
		{
			name:        "exact match is balanced",
			total:       ptrFloat(35.47),
			tax:         2.50,
			items:       []model.LineItem{{ID: 10, Price: 30.98, Quantity: 1}, {ID: 11, Price: 1.99, Quantity: 1}},
			wantVerdict: VerdictBalanced,
		},
		{
			name:        "beyond tolerance warns with signed difference",
			total:       ptrFloat(100.03),
			items:       []model.LineItem{{ID: 10, Price: 100.00, Quantity: 1}},
			wantVerdict: VerdictWarning,
			wantDiff:    0.03,
		},
		{
			name:        "no total at all fails",
			total:       nil,
			items:       []model.LineItem{{ID: 10, Price: 100.00, Quantity: 1}},
			wantVerdict: VerdictFailed,
		},
		{
			name:        "quantity multiplies into the subtotal",
			total:       ptrFloat(10.00),
			items:       []model.LineItem{{ID: 10, Price: 2.50, Quantity: 4}},
			wantVerdict: VerdictBalanced,
		},
		{
			name:        "local items count toward the subtotal",
			total:       ptrFloat(12.00),
			items:       []model.LineItem{{ID: 10, Price: 10.00, Quantity: 1}},
			locals:      []model.LocalItem{{ID: -1, Name: "Bag Fee", Price: 2.00}},
			wantVerdict: VerdictBalanced,
		},
		{
			name:        "overstated items warn with negative difference",
			total:       ptrFloat(20.00),
			tax:         1.00,
			items:       []model.LineItem{{ID: 10, Price: 25.00, Quantity: 1}},
			wantVerdict: VerdictWarning,
			wantDiff:    -6.00,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			baseline := balanceReceipt(tt.total, tt.tax, tt.items...)
			result := Verify(NewState(baseline), tt.locals, baseline)

			assert.Equal(t, tt.wantVerdict, result.Verdict)
			if tt.wantVerdict == VerdictWarning {
				assert.InDelta(t, tt.wantDiff, result.Difference, 0.0001)
			}
		})
	}
}

func TestVerify_ToleranceAppliesToRawValues(t *testing.T) {
	// Raw imbalance 0.019 is inside the tolerance even though the amounts
	// round to a 0.02 difference; rounding before comparing would flip this
	// to a warning.
	baseline := balanceReceipt(ptrFloat(10.023), 0, model.LineItem{ID: 10, Price: 10.004, Quantity: 1})

	result := Verify(NewState(baseline), nil, baseline)
	assert.Equal(t, VerdictBalanced, result.Verdict)
}

func TestVerify_ManualTotalOverridesBaseline(t *testing.T) {
	baseline := balanceReceipt(ptrFloat(200.00), 0, model.LineItem{ID: 10, Price: 50.00, Quantity: 1})

	state := Apply(NewState(baseline), SetManualTotal{Total: ptrFloat(50.00)})

	result := Verify(state, nil, baseline)
	assert.Equal(t, VerdictBalanced, result.Verdict)
}

func TestVerify_ClearedManualTotalWithoutBaselineFails(t *testing.T) {
	baseline := balanceReceipt(nil, 0, model.LineItem{ID: 10, Price: 50.00, Quantity: 1})

	state := Apply(NewState(baseline), SetManualTotal{})

	result := Verify(state, nil, baseline)
	assert.Equal(t, VerdictFailed, result.Verdict)
}

func TestVerify_FastPathTrustsPriorVerdict(t *testing.T) {
	baseline := balanceReceipt(ptrFloat(99.00), 0, model.LineItem{ID: 10, Price: 50.00, Quantity: 1})
	baseline.TotalVerified = true
	baseline.VerificationMessage = "Verified at scan time"

	state := NewState(baseline)

	// Nothing financial changed: the stored verdict wins even though the
	// ground-up math would fail.
	result := Verify(state, nil, baseline)
	assert.Equal(t, VerdictBalanced, result.Verdict)
	assert.Equal(t, "Verified at scan time", result.Detail)

	// A price correction invalidates the fast path.
	touched := Apply(state, SetUnitPrice{ItemID: 10, UnitPrice: 51.00})
	result = Verify(touched, nil, baseline)
	assert.Equal(t, VerdictWarning, result.Verdict)
}

func TestVerify_DeletionInvalidatesFastPath(t *testing.T) {
	baseline := balanceReceipt(ptrFloat(15.00), 0,
		model.LineItem{ID: 10, Price: 10.00, Quantity: 1},
		model.LineItem{ID: 11, Price: 5.00, Quantity: 1},
	)
	baseline.TotalVerified = true

	state := Apply(NewState(baseline), DeleteItem{ItemID: 11})

	result := Verify(state, nil, baseline)
	assert.Equal(t, VerdictWarning, result.Verdict)
	assert.InDelta(t, 5.00, result.Difference, 0.0001)
}

func TestAdjustmentItemRebalances(t *testing.T) {
	baseline := balanceReceipt(ptrFloat(50.00), 3.50, model.LineItem{ID: 10, Price: 3.99, Quantity: 1})
	state := NewState(baseline)

	result := Verify(state, nil, baseline)
	require.Equal(t, VerdictWarning, result.Verdict)
	require.True(t, result.NeedsAdjustment())
	assert.InDelta(t, 42.51, result.Difference, 0.0001)

	adjustment := result.NewAdjustmentItem()
	assert.Negative(t, adjustment.ID)
	assert.Equal(t, "Adjustment", adjustment.Name)
	assert.Equal(t, "Other", adjustment.Category)
	assert.InDelta(t, 42.51, adjustment.Price, 0.0001)

	rebalanced := Verify(state, []model.LocalItem{adjustment}, baseline)
	assert.Equal(t, VerdictBalanced, rebalanced.Verdict)
}

func TestAdjustment_TinyImbalanceNotOffered(t *testing.T) {
	result := Result{Verdict: VerdictWarning, Difference: 0.005}
	assert.False(t, result.NeedsAdjustment())

	result = Result{Verdict: VerdictFailed, Difference: 10.00}
	assert.False(t, result.NeedsAdjustment())
}

func ptrFloat(v float64) *float64 { return &v }
