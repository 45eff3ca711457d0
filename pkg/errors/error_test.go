package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeNotTabular, "trade log is not tabular")
	suite.NotNil(err)
	suite.Equal(ErrCodeNotTabular, err.Code)
	suite.Equal("trade log is not tabular", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeMissingColumn, "missing column: %s", "pnl")
	suite.NotNil(err)
	suite.Equal(ErrCodeMissingColumn, err.Code)
	suite.Equal("missing column: pnl", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeDataQueryFailed, "query failed", cause)
	suite.NotNil(err)
	suite.Equal(ErrCodeDataQueryFailed, err.Code)
	suite.Equal("query failed", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("underlying error")
	err := Wrapf(ErrCodeSymbolNotFound, cause, "symbol %s not found", "AAPL")
	suite.NotNil(err)
	suite.Equal(ErrCodeSymbolNotFound, err.Code)
	suite.Equal("symbol AAPL not found", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeStrategyFileNotFound, "code file not found")
	suite.Equal("[100] code file not found", err.Error())
}

func (suite *ErrorTestSuite) TestErrorStringWithCause() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeDataNotFound, "data not found", cause)
	suite.Equal("[700] data not found: underlying error", err.Error())
}

func (suite *ErrorTestSuite) TestUnwrap() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeDataNotFound, "data not found", cause)
	suite.Equal(cause, err.Unwrap())
}

func (suite *ErrorTestSuite) TestUnwrapNil() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Nil(err.Unwrap())
}

func (suite *ErrorTestSuite) TestGetCode() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.Equal(ErrCodeInvalidParameter, GetCode(err))
}

func (suite *ErrorTestSuite) TestGetCodeFromWrapped() {
	cause := New(ErrCodeEntrySymbolNotFound, "symbol missing")
	wrapped := fmt.Errorf("loading strategy: %w", cause)
	suite.Equal(ErrCodeEntrySymbolNotFound, GetCode(wrapped))
}

func (suite *ErrorTestSuite) TestGetCodeUnknown() {
	err := errors.New("plain error")
	suite.Equal(ErrCodeUnknown, GetCode(err))
}

func (suite *ErrorTestSuite) TestHasCode() {
	err := New(ErrCodeMultiAssetRequired, "requires paired columns")
	suite.True(HasCode(err, ErrCodeMultiAssetRequired))
	suite.False(HasCode(err, ErrCodeNotTabular))
}

func (suite *ErrorTestSuite) TestCategoryHelpers() {
	suite.True(IsArtifactMissing(New(ErrCodeStrategyFileNotFound, "missing")))
	suite.False(IsArtifactMissing(New(ErrCodeNotTabular, "bad shape")))

	suite.True(IsSchemaViolation(New(ErrCodeMissingColumn, "missing column")))
	suite.False(IsSchemaViolation(New(ErrCodeNonDeterministic, "differs")))

	suite.True(IsDomainInapplicable(New(ErrCodeMultiAssetRequired, "pairs only")))
	suite.False(IsDomainInapplicable(errors.New("plain")))
}
