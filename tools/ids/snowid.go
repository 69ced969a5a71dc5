package ids

import (
	"strconv"
	"sync"
	"time"
)

// Generator 雪花ID：41bit 毫秒 + 10bit 节点 + 12bit 序列
type Generator struct {
	mu       sync.Mutex
	epochMS  int64
	nodeID   int64 // 0~1023
	seq      int64 // 0~4095
	lastTSMS int64
	now      func() time.Time
}

var (
	defaultGen *Generator
	once       sync.Once
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func NewGenerator(nodeID int64) *Generator {
	if nodeID < 0 || nodeID > 1023 {
		nodeID = 1
	}
	return &Generator{epochMS: epoch.UnixMilli(), nodeID: nodeID, now: time.Now}
}

func initDefault() {
	once.Do(func() {
		defaultGen = NewGenerator(1)
	})
}

// Generate 默认生成器
func Generate() int64 {
	initDefault()
	return defaultGen.Next()
}

func GenerateString() string {
	initDefault()
	return defaultGen.NextString()
}

// SetNodeID 设置默认生成器的 nodeID，main() 启动时调用
func SetNodeID(nodeID int64) {
	initDefault()
	if nodeID < 0 || nodeID > 1023 {
		nodeID = 1
	}
	defaultGen.mu.Lock()
	defaultGen.nodeID = nodeID
	defaultGen.mu.Unlock()
}

func (g *Generator) NextString() string {
	return strconv.FormatInt(g.Next(), 10)
}

func (g *Generator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	for {
		now := g.now().UnixMilli()
		if now < g.lastTSMS {
			// 时钟回拨，等待
			time.Sleep(time.Duration(g.lastTSMS-now) * time.Millisecond)
			continue
		}
		if now == g.lastTSMS {
			g.seq = (g.seq + 1) & 0xFFF
			if g.seq == 0 {
				// 序列溢出，等到下一毫秒
				for now <= g.lastTSMS {
					now = g.now().UnixMilli()
				}
			}
		} else {
			g.seq = 0
		}
		g.lastTSMS = now

		ts := (now - g.epochMS) & ((1 << 41) - 1)
		return (ts << 22) | (g.nodeID << 12) | g.seq
	}
}

// NodeOf 从ID中取回节点号，排查问题时用
func NodeOf(id int64) int64 { return (id >> 12) & 0x3FF }
