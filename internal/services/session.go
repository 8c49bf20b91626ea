package services

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/fyerfyer/doc-assistant/internal/retrieval"
	"github.com/sirupsen/logrus"
)

// Snapshot 当前文档及其索引，构建完成后不再修改
type Snapshot struct {
	DocumentID string
	FileName   string
	Text       string
	Index      *retrieval.Index
	Chunks     int
	UploadedAt time.Time

	refs      atomic.Int32
	retired   atomic.Bool
	closeOnce sync.Once
	logger    *logrus.Logger
}

// release 释放一个引用，已被替换且无人使用时关闭索引
func (s *Snapshot) release() {
	if s.refs.Add(-1) == 0 && s.retired.Load() {
		s.close()
	}
}

func (s *Snapshot) close() {
	s.closeOnce.Do(func() {
		if err := s.Index.Close(); err != nil && s.logger != nil {
			s.logger.WithFields(logrus.Fields{
				"document_id": s.DocumentID,
				"file_name":   s.FileName,
			}).WithError(err).Warn("Failed to close retired index")
		}
	})
}

// Session 持有唯一的活动文档
// 上传时整体替换快照，读者在一次任务中始终看到同一对(文档, 索引)
type Session struct {
	mu      sync.RWMutex
	current *Snapshot
	logger  *logrus.Logger
}

// NewSession 创建空会话
func NewSession() *Session {
	return &Session{logger: logrus.StandardLogger()}
}

// SetLogger 设置关闭旧索引失败时使用的日志记录器
func (s *Session) SetLogger(logger *logrus.Logger) {
	s.mu.Lock()
	s.logger = logger
	s.mu.Unlock()
}

// Acquire 获取当前快照和释放函数，没有文档时返回nil
func (s *Session) Acquire() (*Snapshot, func()) {
	s.mu.RLock()
	snap := s.current
	if snap != nil {
		snap.refs.Add(1)
	}
	s.mu.RUnlock()

	if snap == nil {
		return nil, func() {}
	}
	return snap, snap.release
}

// Current 返回当前快照，仅用于读取元数据
func (s *Session) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Swap 用新快照替换当前快照
// 旧快照的索引在最后一个读者释放后关闭
func (s *Session) Swap(next *Snapshot) {
	s.mu.Lock()
	if next != nil {
		next.logger = s.logger
	}
	old := s.current
	s.current = next
	s.mu.Unlock()

	if old == nil {
		return
	}
	old.retired.Store(true)
	if old.refs.Load() == 0 {
		old.close()
	}
}

// Clear 移除当前文档
func (s *Session) Clear() {
	s.Swap(nil)
}
