package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/givedesk/internal/common"
	"github.com/Veraticus/givedesk/internal/model"
	"github.com/Veraticus/givedesk/internal/normalize"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func donations(t *testing.T) []model.Donation {
	t.Helper()
	raws := []any{
		map[string]any{"_id": "1", "name": `Dr. "Q"`, "cause": "Water, Wells", "amount": 1234.5, "createdAt": "2024-03-05T10:00:00Z", "transactionId": "tx1", "paymentStatus": "success"},
		map[string]any{"_id": "2", "amount": 10.0},
		map[string]any{"_id": "3", "name": "Lina", "amount": "not-a-number", "createdAt": "garbage"},
	}
	return normalize.Collection(raws, normalize.Donation)
}

func TestEncodeQuotesEveryField(t *testing.T) {
	table := Build("donations.csv", donations(t), DonationColumns())

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, table, nil))

	lines := strings.Split(buf.String(), "\n")
	require.Len(t, lines, 4, "header plus one row per record, no trailing newline")
	assert.True(t, strings.HasPrefix(lines[0], `"ID","Date","Donor Name","Cause","Amount (USD)"`))
	assert.Contains(t, lines[1], `"Dr. ""Q"""`)
	assert.Contains(t, lines[1], `"Water, Wells"`)
	assert.Contains(t, lines[1], `"$1,234.5"`)
	assert.Contains(t, lines[1], `"March 5, 2024"`)
	assert.Contains(t, lines[2], `"$10"`)
	assert.Contains(t, lines[2], `"Anonymous Donor"`)
	assert.Contains(t, lines[2], `"Not provided"`)
	assert.Contains(t, lines[3], `"$0"`)
	assert.Contains(t, lines[3], `"garbage"`, "unparseable dates fall back to the raw value")

	for _, line := range lines {
		for _, field := range splitQuoted(line) {
			assert.True(t, strings.HasPrefix(field, `"`) && strings.HasSuffix(field, `"`), field)
		}
	}
}

// splitQuoted splits a line of fully-quoted fields.
func splitQuoted(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			cur.WriteByte(c)
		case c == ',' && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(fields, cur.String())
}

func TestBuildToleratesPanickingColumn(t *testing.T) {
	cols := []Column[model.Donation]{
		{Header: "ID", Value: func(d model.Donation) string { return d.ID }},
		{Header: "Boom", Value: func(model.Donation) string { panic("bad field") }},
		{Header: "Nil"},
	}
	table := Build("x.csv", donations(t)[:1], cols)
	assert.Equal(t, model.ExportRow{"1", "", ""}, table.Rows[0])
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "$1,000", Currency(1000))
	assert.Equal(t, "$0", Currency(0))
	assert.Equal(t, "March 5, 2024", LongDate("2024-03-05"))
	assert.Equal(t, "Jan 5 2024ish", LongDate("Jan 5 2024ish"))
	assert.Equal(t, "", LongDate(""))
	assert.Equal(t, "", Timestamp("nope"))
	assert.Equal(t, "March 5, 2024, 10:00:00 AM UTC", Timestamp("2024-03-05T10:00:00Z"))
}

func TestFilename(t *testing.T) {
	tests := []struct {
		state    model.FilterState
		name     string
		expected string
	}{
		{name: "no filters", state: nil, expected: "donations.csv"},
		{
			name:     "all tokens in order",
			state:    model.FilterState{model.FilterStatus: "Completed", model.FilterCause: "Clean  Water", model.FilterDateRange: "30days", model.FilterMethod: "Card"},
			expected: "donations_last_30_days_clean_water_card_completed.csv",
		},
		{name: "unknown range ignored", state: model.FilterState{model.FilterDateRange: "forever"}, expected: "donations.csv"},
		{name: "search is not part of the name", state: model.FilterState{model.FilterSearch: "anon"}, expected: "donations.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Filename("donations", tt.state))
		})
	}
}

func TestCampaignColumns(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	c, _ := normalize.Campaign(model.RawRecord{
		"_id": "c1", "title": "Relief", "targetAmount": 1000.0, "totalRaised": 250.0, "donorCount": 4.0,
		"startDate": "2024-05-01", "endDate": "2024-06-11",
	})
	table := Build("campaigns.csv", []model.Campaign{c}, CampaignColumns(func() time.Time { return now }))
	row := table.Rows[0]
	get := func(header string) string {
		for i, h := range table.Header {
			if h == header {
				return row[i]
			}
		}
		t.Fatalf("missing column %s", header)
		return ""
	}

	assert.Equal(t, "25%", get("Progress (%)"))
	assert.Equal(t, "$750", get("Remaining Amount (USD)"))
	assert.Equal(t, "10", get("Days Remaining"))
	assert.Equal(t, "41", get("Campaign Duration (Days)"))
	assert.Equal(t, "$62.50", get("Average Donation (USD)"))
	assert.Equal(t, "25.0%", get("Completion Rate (%)"))
	assert.Equal(t, "No description", get("Description"))

	open, _ := normalize.Campaign(model.RawRecord{"targetAmount": 0.0})
	table = Build("campaigns.csv", []model.Campaign{open}, CampaignColumns(func() time.Time { return now }))
	row = table.Rows[0]
	assert.Equal(t, "Ongoing", get("Days Remaining"))
	assert.Equal(t, "Ongoing", get("End Date"))
	assert.Equal(t, "$0.00", get("Average Donation (USD)"))
	assert.Equal(t, "0.0%", get("Completion Rate (%)"))
}

type recordingSink struct {
	tables []Table
	err    error
}

func (s *recordingSink) Deliver(_ context.Context, table Table, onRow func()) (string, error) {
	for range table.Rows {
		onRow()
	}
	s.tables = append(s.tables, table)
	return "memory://" + table.Name, s.err
}

func TestExporterSkipsEmpty(t *testing.T) {
	sink := &recordingSink{}
	res, err := New(sink).Export(context.Background(), Build("d.csv", []model.Donation{}, DonationColumns()))
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Empty(t, sink.tables)
}

func TestExporterDelivers(t *testing.T) {
	sink := &recordingSink{}
	res, err := New(sink, WithProgress(io.Discard)).Export(context.Background(), Build("d.csv", donations(t), DonationColumns()))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, "memory://d.csv", res.Location)
	require.Len(t, sink.tables, 1)

	sink.err = errors.New("offline")
	_, err = New(sink).Export(context.Background(), Build("d.csv", donations(t), DonationColumns()))
	require.Error(t, err)
}

func TestFileSink(t *testing.T) {
	dir := t.TempDir()
	table := Build("donations_card.csv", donations(t), DonationColumns())

	loc, err := FileSink{Dir: filepath.Join(dir, "downloads")}.Deliver(context.Background(), table, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "downloads", "donations_card.csv"), loc)

	data, err := os.ReadFile(loc)
	require.NoError(t, err)
	expected, err := Bytes(table)
	require.NoError(t, err)
	assert.Equal(t, expected, data)

	entries, err := os.ReadDir(filepath.Join(dir, "downloads"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	fails int
	calls int
}

func (f *fakePutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.calls++
	if f.fails > 0 {
		f.fails--
		return nil, errors.New("connection reset by peer")
	}
	f.input = params
	body, err := io.ReadAll(params.Body)
	f.body = body
	return &s3.PutObjectOutput{}, err
}

func TestS3Sink(t *testing.T) {
	putter := &fakePutter{}
	sink := &S3Sink{Client: putter, Bucket: "exports", Region: "us-east-1", Prefix: "/admin/"}
	table := Build("users.csv", []model.User{{ID: "u1", Username: "sara", Role: "user", Joined: model.Timestamp{Label: model.Never}}}, UserColumns())

	loc, err := sink.Deliver(context.Background(), table, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://exports.s3.us-east-1.amazonaws.com/admin/users.csv", loc)
	assert.Equal(t, "admin/users.csv", *putter.input.Key)
	assert.Equal(t, ContentType, *putter.input.ContentType)
	assert.Contains(t, string(putter.body), `"u1","N/A","sara","","user","No","Never"`)
}

func TestS3SinkRetriesUpload(t *testing.T) {
	putter := &fakePutter{fails: 1}
	sink := &S3Sink{
		Client: putter,
		Bucket: "exports",
		Region: "eu-west-1",
		Retry:  common.RetryOptions{MaxAttempts: 2, InitialDelay: time.Millisecond},
	}
	table := Build("articles.csv", []model.Article{{ID: "a1", Title: "Wells"}}, ArticleColumns())

	loc, err := sink.Deliver(context.Background(), table, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, putter.calls)
	assert.Equal(t, "https://exports.s3.eu-west-1.amazonaws.com/articles.csv", loc)
	assert.Contains(t, string(putter.body), "Wells")

	putter = &fakePutter{fails: 5}
	sink.Client = putter
	_, err = sink.Deliver(context.Background(), table, nil)
	require.ErrorIs(t, err, common.ErrMaxRetries)
	assert.Equal(t, 2, putter.calls)
}

type fakeTableWriter struct {
	title string
	rows  int
}

func (f *fakeTableWriter) WriteTable(_ context.Context, title string, _ []string, rows []model.ExportRow) (string, error) {
	f.title = title
	f.rows = len(rows)
	return "https://sheets.example/" + title, nil
}

func TestSheetsSink(t *testing.T) {
	w := &fakeTableWriter{}
	rows := 0
	loc, err := SheetsSink{Writer: w}.Deliver(context.Background(), Build("articles_draft.csv", []model.Article{{ID: "a"}}, ArticleColumns()), func() { rows++ })
	require.NoError(t, err)
	assert.Equal(t, "articles_draft", w.title)
	assert.Equal(t, "https://sheets.example/articles_draft", loc)
	assert.Equal(t, 1, rows)
}
