package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	File  string // 为空时只输出到标准输出
	Level string
}

// New 构建日志：控制台格式输出到标准输出，同时以JSON格式写入日志文件。
// 返回的closer需在退出前调用（先Sync）
func New(c Config) (lg *zap.Logger, closer func(), err error) {
	level := zapcore.InfoLevel
	if c.Level != "" {
		if level, err = zapcore.ParseLevel(c.Level); err != nil {
			return
		}
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeDuration = zapcore.StringDurationEncoder
	consoleCfg := encCfg
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stdout), level),
	}
	closer = func() {}
	if c.File != "" {
		var ws zapcore.WriteSyncer
		if ws, closer, err = zap.Open(c.File); err != nil {
			return
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), ws, level))
	}
	lg = zap.New(zapcore.NewTee(cores...), zap.AddCaller())
	return
}
