package importer

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chitieu/internal/core"
	"chitieu/internal/ledger"
	"chitieu/internal/storage"
)

var ict = time.FixedZone("ICT", 7*3600)

func newImporter(t *testing.T) (*Importer, *ledger.Store, *storage.MemoryRepository) {
	t.Helper()
	repo := storage.NewMemoryRepository()
	n := 0
	store := ledger.NewStore(repo,
		ledger.WithLocation(ict),
		ledger.WithClock(func() time.Time { return time.Date(2024, 3, 15, 0, 0, 0, 0, ict) }),
		ledger.WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%d", n) }),
	)
	return New(store, WithRecorder(repo)), store, repo
}

func countAll(s *ledger.Store) int {
	total := 0
	for _, sess := range s.Sessions() {
		total += len(sess.Expenses)
	}
	return total
}

func TestDetectFormat(t *testing.T) {
	f, err := DetectFormat("backup.JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	f, err = DetectFormat("/tmp/sao-ke.csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
	_, err = DetectFormat("statement.pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestImportFlatListTwiceDoubles(t *testing.T) {
	ctx := context.Background()
	im, store, _ := newImporter(t)
	data := []byte(`[
		{"amount": 45000, "note": "Phở", "date": "2024-03-05"},
		{"amount": "30.000đ", "note": "Grab", "date": "06/03/2024"},
		{"amount": 0, "note": "rác"},
		{"note": "không có tiền"}
	]`)

	res, err := im.Import(ctx, FormatJSON, data, ledger.Personal(""))
	require.NoError(t, err)
	assert.Equal(t, KindList, res.Kind)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 2, res.Rejected)
	assert.Equal(t, "2024-03", res.LatestMonth)

	res, err = im.Import(ctx, FormatJSON, data, ledger.Personal(""))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 4, countAll(store))

	sess, _ := store.Session("2024-03")
	ids := map[string]bool{}
	for _, e := range sess.Expenses {
		ids[e.ID] = true
	}
	assert.Len(t, ids, 4)
}

func TestImportBackupReplacesMonth(t *testing.T) {
	ctx := context.Background()
	im, store, _ := newImporter(t)
	d := time.Date(2024, 1, 10, 0, 0, 0, 0, ict)
	for i := 0; i < 2; i++ {
		_, err := store.AddExpense(ctx, ledger.Personal("2024-01"), core.Expense{Amount: 1000, Note: "cũ", Category: core.CategoryOther, Date: d})
		require.NoError(t, err)
	}
	_, err := store.AddExpense(ctx, ledger.Personal("2023-12"), core.Expense{Amount: 1000, Note: "giữ", Category: core.CategoryOther, Date: d.AddDate(0, -1, 0)})
	require.NoError(t, err)

	data := []byte(`{"2024-01": {"id": "2024-01", "isCompleted": true, "expenses": [
		{"id": "a", "amount": 10000, "note": "Phở", "category": "FOOD", "date": "2024-01-02T05:00:00.000Z"},
		{"id": "b", "amount": 20000, "note": "Xăng", "category": "TRANSPORT", "date": "2024-01-03T05:00:00.000Z"},
		{"id": "c", "amount": 30000, "note": "Áo", "category": "SHOPPING", "date": "2024-01-04T05:00:00.000Z"}
	]}}`)
	res, err := im.Import(ctx, FormatJSON, data, ledger.Personal(""))
	require.NoError(t, err)
	assert.Equal(t, KindBackup, res.Kind)
	assert.Equal(t, 3, res.Imported)
	assert.Equal(t, "2024-01", res.LatestMonth)

	sess, ok := store.Session("2024-01")
	require.True(t, ok)
	require.Len(t, sess.Expenses, 3)
	assert.True(t, sess.IsCompleted)
	assert.Equal(t, "a", sess.Expenses[0].ID)
	assert.Equal(t, core.CategoryShopping, sess.Expenses[2].Category)
	_, ok = store.Session("2023-12")
	assert.True(t, ok, "months absent from the backup are kept")
}

func TestImportExportRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, store, _ := newImporter(t)
	_, err := store.AddExpense(ctx, ledger.Personal("2024-02"), core.Expense{Amount: 99000, Note: "Lẩu", Category: core.CategoryFood, Date: time.Date(2024, 2, 2, 19, 0, 0, 0, ict)})
	require.NoError(t, err)
	exp, err := store.ExportSessions("2024-02")
	require.NoError(t, err)

	other, store2, _ := newImporter(t)
	res, err := other.Import(ctx, FormatJSON, exp.Data, ledger.Personal(""))
	require.NoError(t, err)
	assert.Equal(t, KindBackup, res.Kind)
	assert.Equal(t, store.Sessions(), store2.Sessions())
}

func TestImportWrappedAndHierarchical(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		data string
		want int
	}{
		{"data key", `{"data": [{"amount": 1000, "note": "a"}, {"amount": 2000, "note": "b"}]}`, 2},
		{"sheet key", `{"Sheet1": [{"Số tiền": "5.000", "Ghi chú": "Trà đá"}], "meta": {"v": 1}}`, 1},
		{"single object with items", `{"date": "2024-03-02", "note": "Đi chợ", "items": [{"amount": 10000, "note": "Rau"}, {"amount": 25000}]}`, 2},
		{"items beside other object lists", `{"date": "2024-03-02", "items": [{"amount": 10000}, {"amount": 25000}, {"amount": 5000}], "attachments": [{"name": "bill.jpg"}]}`, 3},
		{"array of hierarchical", `[{"date": "2024-03-02", "items": [{"amount": 1}, {"amount": 2}]}, {"amount": 3}]`, 3},
		{"no list", `{"hello": "world"}`, 0},
		{"scalar", `42`, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			im, _, _ := newImporter(t)
			res, err := im.Import(ctx, FormatJSON, []byte(tc.data), ledger.Personal(""))
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.Imported)
		})
	}
}

func TestHierarchicalChildInheritsParent(t *testing.T) {
	ctx := context.Background()
	im, store, _ := newImporter(t)
	_, err := im.Import(ctx, FormatJSON, []byte(`{"date": "2024-02-10", "category": "FOOD", "items": [{"amount": 10000, "note": "Rau"}, {"amount": 5000, "note": "Taxi", "category": "TRANSPORT"}]}`), ledger.Personal(""))
	require.NoError(t, err)
	sess, ok := store.Session("2024-02")
	require.True(t, ok)
	require.Len(t, sess.Expenses, 2)
	cats := map[string]core.Category{}
	for _, e := range sess.Expenses {
		cats[e.Note] = e.Category
	}
	assert.Equal(t, core.CategoryFood, cats["Rau"])
	assert.Equal(t, core.CategoryTransport, cats["Taxi"])
}

func TestImportSkipsLockedMonths(t *testing.T) {
	ctx := context.Background()
	im, store, _ := newImporter(t)
	_, err := store.ToggleLock(ctx, ledger.Personal("2024-01"))
	require.NoError(t, err)

	csv := "date,amount,note\n05/01/2024,10000,Phở\n05/02/2024,20000,Bún\n06/02/2024,30000,Cơm\n"
	res, err := im.Import(ctx, FormatCSV, []byte(csv), ledger.Personal(""))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	jan, _ := store.Session("2024-01")
	assert.Empty(t, jan.Expenses)
}

func TestImportUnreadableVersusEmpty(t *testing.T) {
	ctx := context.Background()
	im, store, _ := newImporter(t)

	for _, data := range []string{
		`[{"amount": 1000,`,
		`[{"amount": 1000, "note": "a", "date": "2024-03-01"}] }garbage{`,
		`{"data": [{"amount": 1000, "date": "2024-03-01"}]} [1]`,
	} {
		_, err := im.Import(ctx, FormatJSON, []byte(data), ledger.Personal(""))
		assert.ErrorIs(t, err, ErrUnreadableFile, data)
	}
	assert.Empty(t, store.SessionKeys(), "no partial import from an unreadable file")

	res, err := im.Import(ctx, FormatJSON, []byte("[{\"amount\": 1000, \"date\": \"2024-03-01\"}]\n\n"), ledger.Personal(""))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported, "trailing whitespace is fine")

	_, err = im.Import(ctx, FormatCSV, []byte{0xff, 0xfe, 0x00}, ledger.Personal(""))
	assert.ErrorIs(t, err, ErrUnreadableFile)

	res, err = im.Import(ctx, FormatJSON, []byte(`[{"note": "no amount"}]`), ledger.Personal(""))
	require.NoError(t, err)
	assert.Zero(t, res.Imported)
	assert.Equal(t, 1, res.Rejected)

	res, err = im.Import(ctx, FormatCSV, []byte("date,amount\n"), ledger.Personal(""))
	require.NoError(t, err)
	assert.Zero(t, res.Imported)
}

func TestImportIntoGroupEvent(t *testing.T) {
	ctx := context.Background()
	im, store, _ := newImporter(t)
	ev, err := store.CreateGroupEvent(ctx, core.GroupEvent{Name: "Đà Lạt"})
	require.NoError(t, err)

	res, err := im.Import(ctx, FormatCSV, []byte("2023-07-01,500000,Khách sạn\n2024-08-01,200000,Xe khách\n"), ledger.Group(ev.ID))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	got, _ := store.GroupEvent(ev.ID)
	assert.Len(t, got.Expenses, 2)
	assert.Empty(t, store.SessionKeys(), "group imports never touch sessions")

	_, err = im.Import(ctx, FormatCSV, []byte("2024-08-01,1000,x\n"), ledger.Group("missing"))
	assert.ErrorIs(t, err, ledger.ErrEventNotFound)
}

func TestImportFileRecordsHistory(t *testing.T) {
	ctx := context.Background()
	im, _, repo := newImporter(t)
	res, err := im.ImportFile(ctx, "/uploads/thang3.csv", strings.NewReader("05/03/2024,45000,Phở\n"), ledger.Personal(""))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)

	runs, err := repo.RecentImports(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "thang3.csv", runs[0].Source)
	assert.Equal(t, "list", runs[0].Kind)

	_, err = im.ImportFile(ctx, "notes.txt", strings.NewReader("x"), ledger.Personal(""))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestImportRows(t *testing.T) {
	ctx := context.Background()
	im, store, _ := newImporter(t)
	rows := [][]string{
		{"Ngày", "Số tiền", "Danh mục", "Ghi chú"},
		{"05/03/2024", "45.000", "Ăn uống", "Phở"},
		{"06/03/2024", "", "Cà phê", "trống"},
	}
	res, err := im.ImportRows(ctx, "sheet:abc", rows, ledger.Personal(""))
	require.NoError(t, err)
	assert.Equal(t, KindRows, res.Kind)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Rejected)
	sess, _ := store.Session("2024-03")
	require.Len(t, sess.Expenses, 1)
	assert.Equal(t, core.CategoryFood, sess.Expenses[0].Category)
}
