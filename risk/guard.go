package risk

// Guard 是下单前置校验的通用接口；逐单限额、持仓数量等都可实现。
// Guard 链是挡在 Governor 硬规则之前的窄过滤器，只做逐笔检查，
// 不拥有账户生命周期。
type Guard interface {
	PreOrder(instrument string, deltaQty int) error
}

// MultiGuard 顺序执行多个 Guard，只要有一个返回错误则中止。
type MultiGuard struct {
	Guards []Guard
}

func (m MultiGuard) PreOrder(instrument string, deltaQty int) error {
	for _, g := range m.Guards {
		if g == nil {
			continue
		}
		if err := g.PreOrder(instrument, deltaQty); err != nil {
			return err
		}
	}
	return nil
}
