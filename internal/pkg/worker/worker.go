package worker

import (
	"time"

	"fansite_payment/internal/pkg/push"
	"fansite_payment/pkg/logger"

	"go.uber.org/zap"
)

// NotifyTask 支付成功后的推送通知任务
type NotifyTask struct {
	UserID  string
	OrderNo string
	Title   string
	Body    string
	Retry   int // 重试次数
}

// NotifyPool 通知发送协程池
// 推送是尽力而为：失败有限次重试后丢弃，绝不影响回调处理结果
type NotifyPool struct {
	TaskQueue  chan NotifyTask
	RetryQueue chan NotifyTask
	Pusher     push.PushService
	WorkerNum  int
	MaxRetry   int
}

func NewNotifyPool(pusher push.PushService, workerNum int, bufferSize int) *NotifyPool {
	return &NotifyPool{
		TaskQueue:  make(chan NotifyTask, bufferSize),
		RetryQueue: make(chan NotifyTask, bufferSize/2),
		Pusher:     pusher,
		WorkerNum:  workerNum,
		MaxRetry:   3,
	}
}

func (p *NotifyPool) Start() {
	for i := 0; i < p.WorkerNum; i++ {
		go p.worker(i)
	}
	// 启动重试处理协程
	go p.retryWorker()
	logger.Log.Info("Notify pool started", zap.Int("workers", p.WorkerNum))
}

func (p *NotifyPool) worker(id int) {
	for task := range p.TaskQueue {
		if err := p.Pusher.PushToAccount(task.UserID, task.Title, task.Body, map[string]string{
			"order_no": task.OrderNo,
		}); err != nil {
			logger.Log.Warn("Push failed",
				zap.Int("worker", id),
				zap.String("user_id", task.UserID),
				zap.String("order_no", task.OrderNo),
				zap.Error(err))

			// 如果未达到最大重试次数，加入重试队列
			if task.Retry < p.MaxRetry {
				task.Retry++
				select {
				case p.RetryQueue <- task:
				default:
					p.logDropped(task, err)
				}
			} else {
				p.logDropped(task, err)
			}
		}
	}
}

func (p *NotifyPool) retryWorker() {
	for task := range p.RetryQueue {
		// 延迟重试，避免立即重试
		time.Sleep(time.Duration(task.Retry) * time.Second)

		select {
		case p.TaskQueue <- task:
		default:
			p.logDropped(task, nil)
		}
	}
}

func (p *NotifyPool) logDropped(task NotifyTask, err error) {
	logger.Log.Error("Notify task dropped",
		zap.String("user_id", task.UserID),
		zap.String("order_no", task.OrderNo),
		zap.Int("retry", task.Retry),
		zap.Error(err))
}

// AddTask 任务入队，队列满时丢弃（通知不阻塞主流程）
func (p *NotifyPool) AddTask(task NotifyTask) {
	if p == nil {
		return
	}
	select {
	case p.TaskQueue <- task:
	default:
		p.logDropped(task, nil)
	}
}
