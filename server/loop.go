package server

// Start 启动房间事件循环（单协程串行处理该房间的全部事件）
func (r *Room) Start() {
	go r.run()
}

func (r *Room) run() {
	defer close(r.stopped)
	for {
		select {
		case fn := <-r.cmds:
			fn()
		case <-r.quit:
			return
		}
	}
}

// Stop 结束事件循环并等待退出；可重复调用
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.quit) })
	<-r.stopped
}

// do 把 fn 交给事件循环执行并等待完成；房间已停止时返回 false
// cmds 无缓冲：发送成功即表示循环已取走 fn，done 一定会关闭
func (r *Room) do(fn func()) bool {
	done := make(chan struct{})
	select {
	case r.cmds <- func() {
		defer close(done)
		fn()
	}:
		<-done
		return true
	case <-r.quit:
		return false
	}
}
