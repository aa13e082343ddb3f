package flow

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lambertxiao/go-dynfile/pkg/config"
	"github.com/lambertxiao/go-dynfile/pkg/logg"
	"github.com/lambertxiao/go-dynfile/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
)

func TestFlowSuite(t *testing.T) {
	suite.Run(t, new(FlowSuite))
}

type FlowSuite struct {
	suite.Suite
	dir string
	out *bytes.Buffer
}

func (s *FlowSuite) SetupTest() {
	logg.InitLogger()
	s.dir = s.T().TempDir()
	s.out = &bytes.Buffer{}
}

func (s *FlowSuite) newFlow(nodes ...config.NodeConf) *Flow {
	f, err := New(nodes, Options{
		WorkingDir: s.dir,
		Registerer: prometheus.NewRegistry(),
		Output:     s.out,
	})
	s.Require().Nil(err)
	return f
}

func (s *FlowSuite) close(f *Flow) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Require().Nil(f.Close(ctx))
}

func (s *FlowSuite) read(name string) string {
	b, err := os.ReadFile(filepath.Join(s.dir, name))
	s.Require().Nil(err)
	return string(b)
}

func (s *FlowSuite) forwarded() []Envelope {
	var envs []Envelope
	for _, line := range strings.Split(strings.TrimSpace(s.out.String()), "\n") {
		if line == "" {
			continue
		}
		var env Envelope
		s.Require().Nil(json.Unmarshal([]byte(line), &env))
		envs = append(envs, env)
	}
	return envs
}

func (s *FlowSuite) TestIngestSingleNodeWithoutName() {
	f := s.newFlow(config.NodeConf{Name: "out", Filename: "out.log", Mode: "append", AppendNewline: true})

	input := `{"msg":{"payload":"A"}}
{"msg":{"payload":"B","_msgid":"m2"}}

{"node":"out","msg":{"payload":3}}
`
	accepted, err := f.Ingest(context.Background(), strings.NewReader(input))
	s.Nil(err)
	s.Equal(3, accepted)
	s.close(f)

	s.Equal("A\nB\n3\n", s.read("out.log"))

	envs := s.forwarded()
	s.Len(envs, 3)
	for _, env := range envs {
		s.Equal("out", env.Node)
		s.NotEmpty(env.Msg.ID())
	}
	s.Equal("m2", envs[1].Msg.ID())
	s.Equal("A", envs[0].Msg[types.MsgKeyPayload])
}

func (s *FlowSuite) TestIngestSkipsBadLines() {
	f := s.newFlow(
		config.NodeConf{Name: "a", Filename: "a.log"},
		config.NodeConf{Name: "b", Filename: "b.log"},
	)

	input := `{"node":"a","msg":{"payload":"1"}}
not json
{"msg":{"payload":"no node"}}
{"node":"zzz","msg":{"payload":"unknown"}}
{"node":"b","msg":{"payload":"2"}}
`
	accepted, err := f.Ingest(context.Background(), strings.NewReader(input))
	s.Nil(err)
	s.Equal(2, accepted)
	s.close(f)

	s.Equal("1", s.read("a.log"))
	s.Equal("2", s.read("b.log"))
	s.Equal([]string{"a", "b"}, f.Nodes())
}

func (s *FlowSuite) TestDeliverUnknownNode() {
	f := s.newFlow(
		config.NodeConf{Name: "a", Filename: "a.log"},
		config.NodeConf{Name: "b", Filename: "b.log"},
	)
	defer s.close(f)

	s.ErrorIs(f.Deliver(Envelope{Msg: types.Message{"payload": "x"}}), types.ErrUnknownNode)
	s.ErrorIs(f.Deliver(Envelope{Node: "c", Msg: types.Message{"payload": "x"}}), types.ErrUnknownNode)
}

func (s *FlowSuite) TestBufferPayloadRoundTrip() {
	f := s.newFlow(config.NodeConf{Name: "bin", Filename: "bin.dat", AppendNewline: true})

	input := `{"msg":{"payload":{"type":"Buffer","data":[104,105,0,255]}}}` + "\n"
	accepted, err := f.Ingest(context.Background(), strings.NewReader(input))
	s.Nil(err)
	s.Equal(1, accepted)
	s.close(f)

	s.Equal("hi\x00\xff", s.read("bin.dat"))

	envs := s.forwarded()
	s.Require().Len(envs, 1)
	p, ok := envs[0].Msg[types.MsgKeyPayload].(map[string]interface{})
	s.Require().True(ok)
	s.Equal("Buffer", p["type"])
	s.Equal([]interface{}{float64(104), float64(105), float64(0), float64(255)}, p["data"])
}

func (s *FlowSuite) TestStructuredPayloadKeysSorted() {
	f := s.newFlow(config.NodeConf{Name: "obj", Filename: "obj.json", AppendNewline: true})

	input := `{"msg":{"payload":{"zeta":1,"alpha":{"y":true,"x":null}}}}` + "\n"
	accepted, err := f.Ingest(context.Background(), strings.NewReader(input))
	s.Nil(err)
	s.Equal(1, accepted)
	s.close(f)

	// objects are decoded into maps, so keys come out sorted rather than in source order
	s.Equal(`{"alpha":{"x":null,"y":true},"zeta":1}`+"\n", s.read("obj.json"))
}

func (s *FlowSuite) TestMessageFilenameAndDelete() {
	f := s.newFlow(
		config.NodeConf{Name: "w", Mode: "overwrite"},
		config.NodeConf{Name: "rm", Mode: "delete"},
	)

	input := `{"node":"w","msg":{"filename":"dyn.txt","payload":"v1"}}
{"node":"w","msg":{"filename":"dyn.txt","payload":"v2"}}
`
	_, err := f.Ingest(context.Background(), strings.NewReader(input))
	s.Nil(err)

	// engines are independent, so drain the writer before deleting
	s.Require().Nil(f.Engine("w").Shutdown(context.Background()))
	s.Equal("v2", s.read("dyn.txt"))

	s.Nil(f.Deliver(Envelope{Node: "rm", Msg: types.Message{"filename": "dyn.txt"}}))
	s.close(f)

	_, err = os.Stat(filepath.Join(s.dir, "dyn.txt"))
	s.True(os.IsNotExist(err))
}

func (s *FlowSuite) TestDeliverAfterClose() {
	f := s.newFlow(config.NodeConf{Name: "a", Filename: "a.log"})
	s.close(f)

	s.ErrorIs(f.Deliver(Envelope{Msg: types.Message{"payload": "late"}}), types.ErrEngineClosed)

	_, err := f.Ingest(context.Background(), strings.NewReader(`{"msg":{"payload":"late"}}`))
	s.ErrorIs(err, types.ErrEngineClosed)
}

func (s *FlowSuite) TestInputHandler() {
	f := s.newFlow(config.NodeConf{Name: "a", Filename: "a.log", AppendNewline: true})
	srv := httptest.NewServer(f.InputHandler())
	defer srv.Close()

	resp, err := http.Post(srv.URL, "application/x-ndjson",
		strings.NewReader("{\"msg\":{\"payload\":\"x\"}}\n{\"msg\":{\"payload\":\"y\"}}\n"))
	s.Require().Nil(err)
	body := new(bytes.Buffer)
	body.ReadFrom(resp.Body)
	resp.Body.Close()
	s.Equal(http.StatusAccepted, resp.StatusCode)
	s.Equal("{\"accepted\":2}\n", body.String())

	resp, err = http.Get(srv.URL)
	s.Require().Nil(err)
	resp.Body.Close()
	s.Equal(http.StatusMethodNotAllowed, resp.StatusCode)

	s.close(f)
	s.Equal("x\ny\n", s.read("a.log"))

	resp, err = http.Post(srv.URL, "application/x-ndjson", strings.NewReader("{\"msg\":{\"payload\":\"z\"}}\n"))
	s.Require().Nil(err)
	resp.Body.Close()
	s.Equal(http.StatusServiceUnavailable, resp.StatusCode)
}

func (s *FlowSuite) TestNewRejectsBadNodes() {
	_, err := New(nil, Options{})
	s.ErrorIs(err, types.EINVAL)

	_, err = New([]config.NodeConf{{Name: "a", Mode: "truncate"}}, Options{})
	s.ErrorIs(err, types.EINVAL)

	_, err = New([]config.NodeConf{{Name: "a"}, {Name: "a"}}, Options{})
	s.ErrorIs(err, types.EINVAL)
}

func TestDecodeBuffer(t *testing.T) {
	cases := []struct {
		in   interface{}
		want []byte
		ok   bool
	}{
		{map[string]interface{}{"type": "Buffer", "data": []interface{}{float64(1), float64(2)}}, []byte{1, 2}, true},
		{map[string]interface{}{"type": "Buffer", "data": []interface{}{}}, []byte{}, true},
		{map[string]interface{}{"type": "Buffer", "data": []interface{}{float64(256)}}, nil, false},
		{map[string]interface{}{"type": "Buffer", "data": []interface{}{1.5}}, nil, false},
		{map[string]interface{}{"type": "Buffer", "data": "x"}, nil, false},
		{map[string]interface{}{"type": "Buffer", "data": []interface{}{}, "extra": 1}, nil, false},
		{map[string]interface{}{"type": "Other", "data": []interface{}{}}, nil, false},
		{"Buffer", nil, false},
	}
	for _, c := range cases {
		got, ok := decodeBuffer(c.in)
		if ok != c.ok {
			t.Fatalf("decodeBuffer(%v) ok=%v", c.in, ok)
		}
		if ok && !bytes.Equal(got, c.want) {
			t.Fatalf("decodeBuffer(%v) = %v", c.in, got)
		}
	}
}
