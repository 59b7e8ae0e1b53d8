package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func elbContext(t *testing.T, s *Scheme, status int64, ua, tg string) *ExecutionContext {
	t.Helper()
	ctx := NewExecutionContext(s)
	require.NoError(t, ctx.SetInt(FieldStatusCode, status))
	require.NoError(t, ctx.SetBytes(FieldUserAgent, ua))
	require.NoError(t, ctx.SetBytes(FieldTargetGroupARN, tg))
	return ctx
}

func TestCompileAndExecute(t *testing.T) {
	s := ELBScheme()
	const tg = "arn:aws:elasticloadbalancing:eu-west-1:123456789012:targetgroup/api/73e2d6bc24d8a067"

	tests := []struct {
		expr   string
		status int64
		ua     string
		want   bool
	}{
		{`elb_status_code == 200 && user_agent matches "(Android|axios)"`, 200, "axios/1.6.7", true},
		{`elb_status_code == 200 && user_agent matches "(Android|axios)"`, 200, "curl/8.4.0", false},
		{`elb_status_code == 200 && user_agent matches "(Android|axios)"`, 404, "Android", false},
		{`elb_status_code >= 500`, 502, "", true},
		{`elb_status_code < 500`, 502, "", false},
		{`elb_status_code != 200 || user_agent == "probe"`, 200, "probe", true},
		{`elb_status_code eq 200 and not user_agent contains "bot"`, 200, "Googlebot/2.1", false},
		{`!(elb_status_code le 399)`, 404, "", true},
		{`elb_status_code in {200 301..308}`, 304, "", true},
		{`elb_status_code in {200 301..308}`, 309, "", false},
		{`user_agent in {"curl/8.4.0" "Wget"}`, 0, "Wget", true},
		{`user_agent ~ "^Mozilla/"`, 0, "Mozilla/5.0", true},
		{`user_agent matches "\\d+\\.\\d+"`, 0, "agent 1.2", true},
		{`user_agent == "say \"hi\""`, 0, `say "hi"`, true},
		{`target_group_arn contains "targetgroup/api/"`, 0, "", true},
		{`elb_status_code == 200 || elb_status_code == 404 && user_agent == "x"`, 200, "y", true},
		{`(elb_status_code == 200 || elb_status_code == 404) && user_agent == "x"`, 200, "y", false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			p, err := Compile(s, tt.expr)
			require.NoError(t, err)
			got, err := p.Execute(elbContext(t, s, tt.status, tt.ua, tg))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.expr, p.String())
		})
	}
}

func TestCompileErrors(t *testing.T) {
	s := ELBScheme()
	tests := []struct {
		expr string
		msg  string
		pos  int
	}{
		{``, "empty expression", 0},
		{`status == 200`, "unknown field status", 0},
		{`elb_status_code == "200"`, "type mismatch", 19},
		{`user_agent == 200`, "type mismatch", 14},
		{`user_agent > "a"`, "operator > is not defined for Bytes", 11},
		{`elb_status_code matches "2.."`, "operator matches is not defined for Int", 16},
		{`user_agent matches "(unclosed"`, "invalid regex", 19},
		{`elb_status_code == 200 &&`, "expected field name", 25},
		{`elb_status_code 200`, "expected operator", 16},
		{`(elb_status_code == 200`, "unclosed '('", 0},
		{`elb_status_code == 200)`, "unexpected ')'", 22},
		{`user_agent == "open`, "unterminated string", 14},
		{`elb_status_code == 200 # comment`, "unexpected character", 23},
		{`elb_status_code in {}`, "empty set", 19},
		{`elb_status_code in {500..400}`, "empty range", 20},
		{`user_agent in {"a".."b"}`, "ranges are only allowed", 18},
		{`elb_status_code in {200 "x"}`, "type mismatch", 24},
		{`and == 1`, "unexpected keyword", 0},
		{`elb_status_code == 99999999999999999999`, "out of range", 19},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := Compile(s, tt.expr)
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Contains(t, ce.Msg, tt.msg)
			assert.Equal(t, tt.pos, ce.Pos)
			assert.Equal(t, tt.expr, ce.Expr)
		})
	}
}

func TestExecuteRequiresFields(t *testing.T) {
	s := ELBScheme()
	p := MustCompile(s, `user_agent contains "x"`)

	ctx := NewExecutionContext(s)
	_, err := p.Execute(ctx)
	assert.ErrorContains(t, err, "user_agent is not set")

	// Fields the expression does not read may stay unset.
	require.NoError(t, ctx.SetBytes(FieldUserAgent, "xyz"))
	ok, err := p.Execute(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ctx.Reset()
	_, err = p.Execute(ctx)
	assert.Error(t, err)

	other, err := NewScheme(Field{Name: FieldUserAgent, Type: TypeBytes})
	require.NoError(t, err)
	_, err = p.Execute(NewExecutionContext(other))
	assert.ErrorIs(t, err, ErrSchemeMismatch)
}

func TestExecutionContextTypeChecks(t *testing.T) {
	ctx := NewExecutionContext(ELBScheme())
	assert.Error(t, ctx.SetInt(FieldUserAgent, 1))
	assert.Error(t, ctx.SetBytes(FieldStatusCode, "200"))
	assert.Error(t, ctx.SetInt("nope", 1))
}

func TestNewScheme(t *testing.T) {
	_, err := NewScheme(Field{Name: "a", Type: TypeInt}, Field{Name: "a", Type: TypeBytes})
	assert.ErrorContains(t, err, "duplicate field a")

	_, err = NewScheme(Field{Name: "a"})
	assert.Error(t, err)

	s := ELBScheme()
	typ, ok := s.Lookup(FieldStatusCode)
	require.True(t, ok)
	assert.Equal(t, TypeInt, typ)
	assert.Equal(t, []Field{
		{FieldStatusCode, TypeInt},
		{FieldUserAgent, TypeBytes},
		{FieldTargetGroupARN, TypeBytes},
	}, s.Fields())
}
