// Copyright (c) 2024 The quotasched Authors.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package log

import "go.uber.org/zap"

type loggerImpl struct {
	zapLogger *zap.Logger
}

// NewLogger returns a Logger backed by the given zap logger.
func NewLogger(zapLogger *zap.Logger) Logger {
	return &loggerImpl{zapLogger: zapLogger}
}

// NewNopLogger returns a no-op logger.
func NewNopLogger() Logger {
	return NewLogger(zap.NewNop())
}

// NewDevelopment returns a logger at debug level that logs to STDERR.
func NewDevelopment() (Logger, error) {
	zapLogger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return NewLogger(zapLogger), nil
}

func (lg *loggerImpl) Debug(msg string, fields ...zap.Field) {
	lg.zapLogger.Debug(msg, fields...)
}

func (lg *loggerImpl) Info(msg string, fields ...zap.Field) {
	lg.zapLogger.Info(msg, fields...)
}

func (lg *loggerImpl) Warn(msg string, fields ...zap.Field) {
	lg.zapLogger.Warn(msg, fields...)
}

func (lg *loggerImpl) Error(msg string, fields ...zap.Field) {
	lg.zapLogger.Error(msg, fields...)
}

func (lg *loggerImpl) WithFields(fields ...zap.Field) Logger {
	return NewLogger(lg.zapLogger.With(fields...))
}
