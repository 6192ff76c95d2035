// Package task provides the deferred-work group used for cache writes that
// must not block the response path. Work scheduled here may still be in
// flight when the reply is sent; completion is only awaited at shutdown.
package task

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Group 包装 errgroup，把“响应之后继续执行”的工作收拢到一处，
// panic 与错误只记录日志，绝不回传到请求路径。
// 在途任务达到上限时新任务直接丢弃，调度本身永不阻塞调用方。
type Group struct {
	eg     *errgroup.Group
	logger *logrus.Logger
}

// NewGroup 构建后台任务组，limit > 0 时限制并发在途任务数。
func NewGroup(logger *logrus.Logger, limit int) *Group {
	eg := new(errgroup.Group)
	if limit > 0 {
		eg.SetLimit(limit)
	}
	return &Group{eg: eg, logger: logger}
}

// Defer 调度一个脱离请求生命周期的任务，携带独立的 context。
// 任务是尽力而为的：并发上限占满时立即丢弃并记录日志，不等待空位。
func (g *Group) Defer(fn func(context.Context)) {
	scheduled := g.eg.TryGo(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = nil
				if g.logger != nil {
					g.logger.WithFields(logrus.Fields{
						"action": "deferred_task",
						"panic":  fmt.Sprintf("%v", r),
					}).Error("deferred_task_panic")
				}
			}
		}()
		fn(context.Background())
		return nil
	})
	if !scheduled && g.logger != nil {
		g.logger.WithFields(logrus.Fields{
			"action": "deferred_task",
		}).Warn("deferred_task_dropped")
	}
}

// Wait 阻塞直到所有在途任务完成，仅在进程退出前调用。
func (g *Group) Wait() {
	_ = g.eg.Wait()
}
