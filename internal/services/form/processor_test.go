package form

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phambaophuc/image-webhook/internal/models"
	"github.com/phambaophuc/image-webhook/internal/services/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type part struct {
	name     string
	filename string
	data     []byte
}

func field(name, value string) part {
	return part{name: name, data: []byte(value)}
}

func file(name string, data []byte) part {
	return part{name: name, filename: "image.png", data: data}
}

func newReader(t *testing.T, parts ...part) *multipart.Reader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, p := range parts {
		var (
			pw  io.Writer
			err error
		)
		if p.filename != "" {
			pw, err = w.CreateFormFile(p.name, p.filename)
		} else {
			pw, err = w.CreateFormField(p.name)
		}
		require.NoError(t, err)
		_, err = pw.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return multipart.NewReader(&body, w.Boundary())
}

type fakeMirror struct {
	calls []string
	err   error
}

func (f *fakeMirror) Upload(_ context.Context, data []byte, filename, id string) (string, error) {
	f.calls = append(f.calls, filename+":"+id+":"+string(data))
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.example/" + id, nil
}

type fakePublisher struct {
	events []*models.ImageSavedEvent
	err    error
}

func (f *fakePublisher) PublishImageSaved(_ context.Context, event *models.ImageSavedEvent) error {
	f.events = append(f.events, event)
	return f.err
}

func newProcessor(t *testing.T, opts ...Option) (*Processor, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resImage.png")
	return NewProcessor(storage.NewLocalStore(path), zap.NewNop(), opts...), path
}

func TestProcess_SavesImage(t *testing.T) {
	p, path := newProcessor(t)
	payload := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}

	out := p.Process(context.Background(), newReader(t,
		field("status", "200"),
		field("id_gen", "abc"),
		field("time_gen", "2024-05-01 10:00"),
		file("res_image", payload),
	))

	require.Equal(t, models.OutcomeSaved, out.Kind, out.Message)
	assert.Equal(t, "abc", out.Submission.IDGen)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestProcess_OverwritesPreviousImage(t *testing.T) {
	p, path := newProcessor(t)

	for _, payload := range [][]byte{[]byte("first-payload"), []byte("second")} {
		out := p.Process(context.Background(), newReader(t,
			field("status", "200"),
			file("res_image", payload),
		))
		require.Equal(t, models.OutcomeSaved, out.Kind)
	}

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}

func TestProcess_NonOKStatusRejectsWithMessage(t *testing.T) {
	p, path := newProcessor(t)

	out := p.Process(context.Background(), newReader(t,
		field("status", "404"),
		field("img_message", "not found"),
		file("res_image", []byte("ignored")),
	))

	assert.Equal(t, models.OutcomeRejected, out.Kind)
	assert.Equal(t, "not found", out.Message)
	assert.NoFileExists(t, path)
}

func TestProcess_StatusMustMatchExactly(t *testing.T) {
	for _, status := range []string{"200 ", "OK", "", " 200", "2000"} {
		t.Run(status, func(t *testing.T) {
			p, path := newProcessor(t)

			out := p.Process(context.Background(), newReader(t,
				field("status", status),
				file("res_image", []byte("img")),
			))

			assert.Equal(t, models.OutcomeRejected, out.Kind)
			assert.Empty(t, out.Message)
			assert.NoFileExists(t, path)
		})
	}
}

func TestProcess_MissingStatusRejects(t *testing.T) {
	p, path := newProcessor(t)

	out := p.Process(context.Background(), newReader(t,
		field("img_message", "upstream failed"),
		file("res_image", []byte("img")),
	))

	assert.Equal(t, models.OutcomeRejected, out.Kind)
	assert.Equal(t, "upstream failed", out.Message)
	assert.NoFileExists(t, path)
}

func TestProcess_MissingImageRejects(t *testing.T) {
	p, path := newProcessor(t)

	out := p.Process(context.Background(), newReader(t,
		field("status", "200"),
		field("id_gen", "abc"),
	))

	assert.Equal(t, models.OutcomeRejected, out.Kind)
	assert.Equal(t, "resImage is not a file", out.Message)
	assert.NoFileExists(t, path)
}

func TestProcess_TextImagePartCountsAsPresent(t *testing.T) {
	p, path := newProcessor(t)

	out := p.Process(context.Background(), newReader(t,
		field("status", "200"),
		field("res_image", ""),
	))

	require.Equal(t, models.OutcomeSaved, out.Kind)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProcess_IgnoresUnknownParts(t *testing.T) {
	p, path := newProcessor(t)

	out := p.Process(context.Background(), newReader(t,
		file("attachment", bytes.Repeat([]byte("z"), 4096)),
		field("status", "200"),
		field("extra", "value"),
		file("res_image", []byte("img")),
	))

	require.Equal(t, models.OutcomeSaved, out.Kind)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), got)
}

func TestProcess_LastDuplicatePartWins(t *testing.T) {
	p, path := newProcessor(t)

	out := p.Process(context.Background(), newReader(t,
		field("status", "500"),
		field("status", "200"),
		file("res_image", []byte("one")),
		file("res_image", []byte("two")),
	))

	require.Equal(t, models.OutcomeSaved, out.Kind)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)
}

func TestProcess_InvalidUTF8Fails(t *testing.T) {
	p, path := newProcessor(t)

	out := p.Process(context.Background(), newReader(t,
		part{name: "status", data: []byte{0xff, 0xfe}},
		file("res_image", []byte("img")),
	))

	assert.Equal(t, models.OutcomeFailed, out.Kind)
	assert.Contains(t, out.Message, `field "status" is not valid UTF-8`)
	assert.NoFileExists(t, path)
}

func TestProcess_BinaryImageIsNotDecoded(t *testing.T) {
	p, path := newProcessor(t)

	out := p.Process(context.Background(), newReader(t,
		field("status", "200"),
		file("res_image", []byte{0xff, 0xfe, 0x00}),
	))

	require.Equal(t, models.OutcomeSaved, out.Kind)
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xfe, 0x00}, got)
}

func TestProcess_TruncatedBodyFails(t *testing.T) {
	p, path := newProcessor(t)

	body := "--xyz\r\nContent-Disposition: form-data; name=\"status\"\r\n\r\n200"
	out := p.Process(context.Background(), multipart.NewReader(bytes.NewBufferString(body), "xyz"))

	assert.Equal(t, models.OutcomeFailed, out.Kind)
	assert.NotEmpty(t, out.Message)
	assert.NoFileExists(t, path)
}

func TestProcess_WriteErrorFails(t *testing.T) {
	store := storage.NewLocalStore(filepath.Join(t.TempDir(), "missing", "resImage.png"))
	p := NewProcessor(store, nil)

	out := p.Process(context.Background(), newReader(t,
		field("status", "200"),
		file("res_image", []byte("img")),
	))

	assert.Equal(t, models.OutcomeFailed, out.Kind)
	assert.Contains(t, out.Message, "failed to create")
}

func TestProcess_LogsIdentifiers(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	path := filepath.Join(t.TempDir(), "resImage.png")
	p := NewProcessor(storage.NewLocalStore(path), zap.New(core))

	p.Process(context.Background(), newReader(t,
		field("status", "200"),
		field("id_gen", "abc"),
		field("time_gen", "noon"),
		file("res_image", []byte("img")),
	))

	entries := logs.FilterMessage("processFormData").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "abc", entries[0].ContextMap()["id_gen"])
	assert.Equal(t, "noon", entries[0].ContextMap()["time_gen"])
	assert.Zero(t, logs.FilterMessage("processFormData: idGen or timeGen not provided").Len())
}

func TestProcess_LogsMissingIdentifiers(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	path := filepath.Join(t.TempDir(), "resImage.png")
	p := NewProcessor(storage.NewLocalStore(path), zap.New(core))

	p.Process(context.Background(), newReader(t,
		field("status", "200"),
		file("res_image", []byte("img")),
	))

	assert.Equal(t, 1, logs.FilterMessage("processFormData: idGen or timeGen not provided").Len())
}

func TestProcess_MirrorsAndPublishes(t *testing.T) {
	mirror := &fakeMirror{}
	pub := &fakePublisher{}
	p, path := newProcessor(t, WithMirror(mirror), WithPublisher(pub))
	saved := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return saved }

	out := p.Process(context.Background(), newReader(t,
		field("status", "200"),
		field("id_gen", "abc"),
		field("time_gen", "noon"),
		file("res_image", []byte("img")),
	))
	require.Equal(t, models.OutcomeSaved, out.Kind)

	assert.Equal(t, []string{path + ":abc:img"}, mirror.calls)
	require.Len(t, pub.events, 1)

	event := pub.events[0]
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "abc", event.IDGen)
	assert.Equal(t, "noon", event.TimeGen)
	assert.Equal(t, path, event.Path)
	assert.Equal(t, int64(3), event.FileSize)
	assert.Equal(t, "https://cdn.example/abc", event.MirrorURL)
	assert.Equal(t, saved, event.SavedAt)
}

func TestProcess_SideChannelFailuresKeepSave(t *testing.T) {
	mirror := &fakeMirror{err: errors.New("bucket missing")}
	pub := &fakePublisher{err: errors.New("broker down")}
	p, path := newProcessor(t, WithMirror(mirror), WithPublisher(pub))

	out := p.Process(context.Background(), newReader(t,
		field("status", "200"),
		file("res_image", []byte("img")),
	))

	require.Equal(t, models.OutcomeSaved, out.Kind)
	assert.FileExists(t, path)
	require.Len(t, pub.events, 1)
	assert.Empty(t, pub.events[0].MirrorURL)
}

func TestProcess_RejectedSkipsSideChannels(t *testing.T) {
	mirror := &fakeMirror{}
	pub := &fakePublisher{}
	p, _ := newProcessor(t, WithMirror(mirror), WithPublisher(pub))

	p.Process(context.Background(), newReader(t,
		field("status", "404"),
		file("res_image", []byte("img")),
	))

	assert.Empty(t, mirror.calls)
	assert.Empty(t, pub.events)
}

func TestReadSubmission_QuotedPrintablePart(t *testing.T) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="img_message"`)
	h.Set("Content-Transfer-Encoding", "quoted-printable")
	pw, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = pw.Write([]byte("caf=C3=A9"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	sub, err := readSubmission(multipart.NewReader(&body, w.Boundary()))
	require.NoError(t, err)
	assert.Equal(t, "café", sub.ImgMessage)
}
