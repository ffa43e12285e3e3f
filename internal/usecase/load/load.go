package load

import (
	goerrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"goban/internal/bootstrap"
	"goban/internal/domain/game"
	"goban/internal/errors"
	"goban/internal/events"
	"goban/internal/gtp"
	"goban/internal/usecase/setup"
)

type Engine interface {
	Exec(command string) (gtp.Response, error)
	SuspendPondering() error
	ResumePondering() error
}

type Setup interface {
	NewGame(c setup.GameConfig, opts setup.Options) (*game.Game, error)
	DefaultConfig() setup.GameConfig
	ApplyHandicap(g *game.Game, vs []game.Vertex)
	KickOffBotMove(g *game.Game)
}

// Progress — необязательный приёмник крупнозернистого прогресса.
// На исход загрузки не влияет.
type Progress interface {
	Report(fraction float64, label string)
}

// Error — единственный пользовательский результат неудачной загрузки:
// заголовок + сообщение, без структурных кодов. Stage остаётся для логов.
type Error struct {
	Stage   string
	Title   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (стадия %s)", e.Title, e.Message, e.Stage)
}

func (e *Error) Unwrap() error { return e.Err }

// Orchestrator восстанавливает партию из SGF-файла: копирует его во
// временное имя, скармливает движку, цепочкой зависимых запросов достаёт
// размер доски, коми, фору и список ходов, собирает локальную запись и
// проигрывает ходы с проверкой. Любой сбой уходит в единый обработчик,
// который откатывает систему к играбельной партии по умолчанию.
type Orchestrator struct {
	cfg    *bootstrap.Config
	log    *zap.SugaredLogger
	engine Engine
	setup  Setup
	bus    *events.Bus

	Progress Progress
}

func NewOrchestrator(cfg *bootstrap.Config, log *zap.SugaredLogger, engine Engine, st Setup, bus *events.Bus) *Orchestrator {
	return &Orchestrator{cfg: cfg, log: log, engine: engine, setup: st, bus: bus}
}

// session — состояние одной попытки загрузки. Каждый шаг цепочки пишет
// ровно одно своё поле и не читает ещё не заполненные.
type session struct {
	sourcePath   string
	stagedPath   string
	boardSize    int
	komiText     string
	handicapText string
	movesText    string
	materialized bool
	failed       bool
}

// LoadGame выполняет всю цепочку. При ошибке возвращает партию по
// умолчанию (система всегда остаётся в согласованном играбельном
// состоянии) и *Error с человекочитаемой причиной.
func (o *Orchestrator) LoadGame(sourcePath string) (*game.Game, error) {
	s := &session{sourcePath: sourcePath}
	o.report(0, "копирование файла")

	// фоновое обдумывание мешает цепочке зависимых запросов; сбой здесь
	// не терминален — мёртвый движок поймает loadsgf
	if err := o.engine.SuspendPondering(); err != nil {
		o.log.Debugw("ponder не остановлен", "error", err)
	}
	defer func() {
		if err := o.engine.ResumePondering(); err != nil {
			o.log.Debugw("ponder не возобновлён", "error", err)
		}
	}()

	if err := o.stage(s); err != nil {
		return o.fail(s, "stage", "файл не найден или не скопирован", err)
	}

	if err := o.engineLoad(s); err != nil {
		if goerrors.Is(err, errors.ErrProtocolFailure) {
			// самый вероятный сбой: файл не является SGF
			return o.fail(s, "engine_load", "файл не является корректной записью партии", err)
		}
		return o.fail(s, "engine_load", "движок недоступен", err)
	}
	o.report(0.2, "файл принят движком")

	if err := o.recoverBoardSize(s); err != nil {
		return o.fail(s, "recover_boardsize", "не удалось определить размер доски", err)
	}
	if err := o.recoverKomi(s); err != nil {
		return o.fail(s, "recover_komi", "не удалось получить коми", err)
	}
	if err := o.recoverHandicap(s); err != nil {
		return o.fail(s, "recover_handicap", "не удалось получить фору", err)
	}
	if err := o.recoverMoves(s); err != nil {
		return o.fail(s, "recover_moves", "не удалось получить список ходов", err)
	}
	o.report(0.4, "позиция восстановлена")

	g, err := o.materialize(s)
	if err != nil {
		return o.fail(s, "materialize", "не удалось собрать локальную партию", err)
	}

	if idx, err := o.replay(s, g); err != nil {
		// idx == 0 — список ходов не разобрался целиком
		message := "запись содержит нечитаемый список ходов"
		if idx > 0 {
			message = fmt.Sprintf("запись содержит недопустимый ход №%d", idx)
		}
		return o.fail(s, "replay", message, err)
	}

	return o.complete(g), nil
}

// stage копирует исходный файл под имя без символов, которые нельзя
// пронести в аргументе GTP-команды.
func (o *Orchestrator) stage(s *session) error {
	data, err := os.ReadFile(s.sourcePath)
	if err != nil {
		return fmt.Errorf("чтение %s: %v: %w", s.sourcePath, err, errors.ErrIOFailure)
	}
	staged := filepath.Join(o.cfg.StagingDir, uuid.New().String()+".sgf")
	if err := os.WriteFile(staged, data, 0o644); err != nil {
		return fmt.Errorf("запись %s: %v: %w", staged, err, errors.ErrIOFailure)
	}
	s.stagedPath = staged
	return nil
}

func (o *Orchestrator) engineLoad(s *session) error {
	resp, err := o.engine.Exec("loadsgf " + s.stagedPath)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("loadsgf: %s: %w", resp.Text, errors.ErrProtocolFailure)
	}
	// позиция в движке, staging-копия больше не нужна
	o.cleanup(s)
	return nil
}

// recoverBoardSize выводит размер доски из формы ответа showboard:
// число строк-рядов равно размеру.
func (o *Orchestrator) recoverBoardSize(s *session) error {
	text, err := o.probe("showboard")
	if err != nil {
		return err
	}
	rows := countBoardRows(text)
	if rows < 2 || rows > 25 {
		return fmt.Errorf("showboard дал %d рядов: %w", rows, errors.ErrProtocolFailure)
	}
	s.boardSize = rows
	return nil
}

func (o *Orchestrator) recoverKomi(s *session) error {
	text, err := o.probe("get_komi")
	if err != nil {
		return err
	}
	s.komiText = text // пустой текст — коми нет
	return nil
}

func (o *Orchestrator) recoverHandicap(s *session) error {
	text, err := o.probe("list_handicap")
	if err != nil {
		return err
	}
	s.handicapText = text
	return nil
}

func (o *Orchestrator) recoverMoves(s *session) error {
	text, err := o.probe("list_moves")
	if err != nil {
		return err
	}
	s.movesText = text
	return nil
}

// materialize строит локальную запись партии по восстановленным данным.
// Движок уже держит позицию из loadsgf, поэтому настройка движка выключена.
func (o *Orchestrator) materialize(s *session) (*game.Game, error) {
	komi := 0.0
	if s.komiText != "" {
		parsed, err := strconv.ParseFloat(s.komiText, 64)
		if err != nil {
			return nil, fmt.Errorf("get_komi вернул %q: %w", s.komiText, errors.ErrProtocolFailure)
		}
		komi = parsed
	}

	handicap, err := game.ParseVertexList(s.handicapText, s.boardSize)
	if err != nil {
		return nil, fmt.Errorf("list_handicap вернул %q: %v: %w", s.handicapText, err, errors.ErrProtocolFailure)
	}

	conf := o.setup.DefaultConfig()
	conf.BoardSize = s.boardSize
	conf.Komi = komi
	conf.Handicap = len(handicap)

	g, err := o.setup.NewGame(conf, setup.Options{ApplyProfile: true})
	if err != nil {
		return nil, err
	}
	o.setup.ApplyHandicap(g, handicap)

	s.materialized = true
	return g, nil
}

func (o *Orchestrator) complete(g *game.Game) *game.Game {
	o.bus.Publish(events.Event{Type: events.GameLoaded, Game: g})
	o.report(1, "партия загружена")
	g.Lock()
	kick := g.IsBot(g.Board.CurrentColor())
	g.Unlock()
	if kick {
		// продолжение genmove держит таблица команд в полёте
		o.setup.KickOffBotMove(g)
	}
	return g
}

func (o *Orchestrator) probe(command string) (string, error) {
	resp, err := o.engine.Exec(command)
	if err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("%s: %s: %w", command, resp.Text, errors.ErrProtocolFailure)
	}
	return resp.Text, nil
}

// fail — единственный терминальный обработчик цепочки: убирает staging,
// откатывает движок и локальную запись к партии по умолчанию и отдаёт
// одно пользовательское сообщение. Половинчатых состояний не остаётся.
func (o *Orchestrator) fail(s *session, stage, message string, cause error) (*game.Game, error) {
	s.failed = true
	o.cleanup(s)
	o.log.Errorw("загрузка партии прервана", "stage", stage, "error", cause)

	fallback := o.fallbackGame()
	return fallback, &Error{
		Stage:   stage,
		Title:   "Не удалось загрузить партию",
		Message: message,
		Err:     cause,
	}
}

func (o *Orchestrator) fallbackGame() *game.Game {
	g, err := o.setup.NewGame(o.setup.DefaultConfig(), setup.Options{SetupEngine: true, SetupStones: true})
	if err == nil {
		return g
	}
	o.log.Errorw("откат с настройкой движка не удался, строим только локальную партию", "error", err)
	g, err = o.setup.NewGame(o.setup.DefaultConfig(), setup.Options{})
	if err != nil {
		o.log.Errorw("партия по умолчанию не собрана", "error", err)
		return nil
	}
	return g
}

func (o *Orchestrator) cleanup(s *session) {
	if s.stagedPath == "" {
		return
	}
	if err := os.Remove(s.stagedPath); err != nil {
		o.log.Warnw("staging-файл не удалён", "path", s.stagedPath, "error", err)
	}
	s.stagedPath = ""
}

func (o *Orchestrator) report(fraction float64, label string) {
	if o.Progress != nil {
		o.Progress.Report(fraction, label)
	}
}
