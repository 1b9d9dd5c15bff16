package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/fieldwise/internal/domain"
	"github.com/xiaot623/fieldwise/internal/testutil"
)

func TestListReports(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestSQLiteStore(t)

	var out bytes.Buffer
	require.NoError(t, listReports(ctx, &out, db, false))
	assert.Contains(t, out.String(), "No reports filed yet.")

	_, err := db.Save(ctx, `{"technician_name":"Dana","site_name":"Pad 12"}`)
	require.NoError(t, err)
	_, err = db.Save(ctx, "Technician Dana, Pad 12")
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, listReports(ctx, &out, db, false))
	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), "#2")
	assert.Contains(t, string(lines[0]), "(malformed)")
	assert.Contains(t, string(lines[1]), "Pad 12")

	out.Reset()
	require.NoError(t, listReports(ctx, &out, db, true))
	assert.Contains(t, out.String(), `"report_data":"Technician Dana, Pad 12"`)
}

func TestShowReport(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestSQLiteStore(t)
	id, err := db.Save(ctx, `{"site_name":"Pad 12"}`)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, showReport(ctx, &out, db, id))
	assert.Contains(t, out.String(), "Report #1")
	assert.Contains(t, out.String(), `  "site_name": "Pad 12"`)

	err = showReport(ctx, &out, db, 99)
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
}

func TestFormatPayloadKeepsUnstructuredText(t *testing.T) {
	r := &domain.Report{Payload: "free text"}
	assert.Equal(t, "free text", formatPayload(r))
}
