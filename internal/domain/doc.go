// Package domain models coal terminal stockpile data and self-ignition risk.
//
// # Data Sources
//
// The terminal's operational systems export four CSV time series. Headers are
// Russian; the decoder renames them to canonical snake_case columns:
//
//	fires        one row per registered self-ignition event
//	             (Штабель→pile_id, Груз→coal_grade, Склад→stockyard,
//	             Дата начала→fire_start, Дата оконч.→fire_end,
//	             Нач.форм.штабеля→pile_start)
//	temperature  manual probe measurements taken per shift
//	             (Штабель→pile_id, Марка→coal_grade,
//	             Максимальная температура→temp_max, Пикет→location,
//	             Дата акта→date, Смена→shift)
//	supplies     wagon unloads onto piles and ship loads off them
//	             (ВыгрузкаНаСклад→unload_time, ПогрузкаНаСудно→load_time,
//	             На склад, тн→to_stock_tons, На судно, тн→from_stock_tons,
//	             Наим. ЕТСНГ→coal_grade, Штабель→pile_id, Склад→stockyard)
//	weather      daily station observations (t→temp_air, p→pressure,
//	             precipitation→precip, v_avg→wind_avg, v_max→wind_max,
//	             plus humidity, wind_dir, cloudcover, visibility)
//
// # Data Conventions
//
// Piles are identified by integer number and live on numbered stockyards.
// All dates are calendar days in UTC; timestamps carried by the source
// systems (unload/load times, fire start) are truncated to the day for
// joining. Unparseable cells decode to a missing value, never an error — the
// exports routinely contain free-text noise in numeric and date columns.
//
// A pile-day is the unit of observation. Temperature measurements anchor the
// assembled dataset: a pile-day exists iff at least one probe reading was
// taken on that pile that day. Supplies and weather attach by left join, so a
// pile-day without supply movements carries no stock figures and a day
// outside the weather record carries no weather features.
//
// # Labels
//
// Each pile is labeled with its earliest registered fire. days_to_fire is the
// signed day count from the observation to that fire (negative once the fire
// has already started). fire_in_horizon flags observations at most `horizon`
// days before the fire; ever_fire flags all rows of a pile that ever ignited.
//
// # Risk and Confidence
//
// Risk levels map the rounded predicted days-to-fire onto operational
// urgency tiers (critical/high/medium/low) with configurable thresholds; see
// [RiskThresholds]. Confidence grades the raw (unrounded) estimate by how far
// out it falls: near-term estimates are high confidence, far-out ones low.
// Negative raw estimates grade as low confidence; see [ConfidenceFor].
package domain
